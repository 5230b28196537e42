package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

func initLogger(verbose bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(output).Level(level).With().Timestamp().Str("app", "amqpprobe").Logger()
}

// wireLogger adapts a zerolog.Logger to the library's slog-style Logger
// interface. Odd trailing arguments are dropped.
type wireLogger struct {
	l zerolog.Logger
}

func (w *wireLogger) Debug(msg string, args ...any) {
	emit(w.l.Debug(), msg, args)
}

func (w *wireLogger) Info(msg string, args ...any) {
	emit(w.l.Info(), msg, args)
}

func (w *wireLogger) Warn(msg string, args ...any) {
	emit(w.l.Warn(), msg, args)
}

func (w *wireLogger) Error(msg string, args ...any) {
	emit(w.l.Error(), msg, args)
}

func emit(e *zerolog.Event, msg string, args []any) {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, args[i+1])
	}
	e.Msg(msg)
}
