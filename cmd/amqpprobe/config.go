package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config drives one probe run.
type Config struct {
	Addr        string
	VirtualHost string
	User        string
	Password    string
	Timeout     time.Duration
}

type fileConfig struct {
	Addr        string `toml:"addr"`
	VirtualHost string `toml:"virtual_host"`
	User        string `toml:"user"`
	Password    string `toml:"password"`
	Timeout     string `toml:"timeout"`
}

func defaultConfig() Config {
	return Config{
		Addr:        "localhost:5672",
		VirtualHost: "/",
		User:        "guest",
		Password:    "guest",
		Timeout:     10 * time.Second,
	}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load probe config: %w", err)
	}

	if meta.IsDefined("addr") {
		if addr := strings.TrimSpace(raw.Addr); addr != "" {
			cfg.Addr = addr
		}
	}
	if meta.IsDefined("virtual_host") {
		cfg.VirtualHost = raw.VirtualHost
	}
	if meta.IsDefined("user") {
		cfg.User = raw.User
	}
	if meta.IsDefined("password") {
		cfg.Password = raw.Password
	}
	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}

	return cfg, nil
}
