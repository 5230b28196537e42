package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/amqpwire/amqpwire"
)

var (
	flagConfig   string
	flagAddr     string
	flagVhost    string
	flagUser     string
	flagPassword string
	flagVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "amqpprobe",
	Short: "Probe an AMQP 0-9-1 broker by running the connection handshake",
	Long: `amqpprobe dials a broker, performs the full open handshake
(protocol header, Start/StartOk, Tune/TuneOk, Open/OpenOk) followed by an
orderly Close/CloseOk, and logs every frame it sends and receives. It is a
connectivity and framing debug tool; it implements no policy beyond echoing
the server's tuning parameters.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := defaultConfig()
		if flagConfig != "" {
			var err error
			cfg, err = loadConfig(flagConfig)
			if err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("addr") {
			cfg.Addr = flagAddr
		}
		if cmd.Flags().Changed("vhost") {
			cfg.VirtualHost = flagVhost
		}
		if cmd.Flags().Changed("user") {
			cfg.User = flagUser
		}
		if cmd.Flags().Changed("password") {
			cfg.Password = flagPassword
		}

		logger := initLogger(flagVerbose)
		return probe(cfg, logger)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "path to TOML config file")
	rootCmd.Flags().StringVar(&flagAddr, "addr", "localhost:5672", "broker address")
	rootCmd.Flags().StringVar(&flagVhost, "vhost", "/", "virtual host to open")
	rootCmd.Flags().StringVar(&flagUser, "user", "guest", "user name for the PLAIN response")
	rootCmd.Flags().StringVar(&flagPassword, "password", "guest", "password for the PLAIN response")
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}

// probe runs the open and close handshake sequences on channel 0.
func probe(cfg Config, logger zerolog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	reader, writer, err := amqpwire.Dial(ctx, cfg.Addr,
		amqpwire.LoggerOption(&wireLogger{logger}),
		amqpwire.DialTimeoutOption(cfg.Timeout),
	)
	if err != nil {
		return err
	}
	defer reader.Close()
	defer writer.Close()

	if _, err := writer.Write(amqpwire.DefaultProtocolHeader()); err != nil {
		return err
	}
	logger.Info().Str("addr", cfg.Addr).Msg("sent protocol header")

	frame, err := expect[*amqpwire.Start](reader, &logger)
	if err != nil {
		return err
	}
	logger.Info().
		Int("version_major", int(frame.VersionMajor)).
		Int("version_minor", int(frame.VersionMinor)).
		Str("mechanisms", frame.Mechanisms).
		Msg("server Start")

	startOk := &amqpwire.StartOk{
		ClientProperties: amqpwire.Table{
			"product":  "amqpprobe",
			"platform": "golang",
		},
		Mechanism: "PLAIN",
		Response:  "\x00" + cfg.User + "\x00" + cfg.Password,
		Locale:    "en_US",
	}
	if _, err := writer.WriteFrame(0, startOk); err != nil {
		return err
	}

	tune, err := expect[*amqpwire.Tune](reader, &logger)
	if err != nil {
		return err
	}
	logger.Info().
		Uint16("channel_max", tune.ChannelMax).
		Uint32("frame_max", tune.FrameMax).
		Uint16("heartbeat", tune.Heartbeat).
		Msg("server Tune")

	tuneOk := &amqpwire.TuneOk{
		ChannelMax: tune.ChannelMax,
		FrameMax:   tune.FrameMax,
		Heartbeat:  tune.Heartbeat,
	}
	if _, err := writer.WriteFrame(0, tuneOk); err != nil {
		return err
	}

	if _, err := writer.WriteFrame(0, &amqpwire.Open{VirtualHost: cfg.VirtualHost}); err != nil {
		return err
	}
	if _, err = expect[*amqpwire.OpenOk](reader, &logger); err != nil {
		return err
	}
	logger.Info().Str("vhost", cfg.VirtualHost).Msg("connection open")

	closeReq := &amqpwire.Close{ReplyCode: 200, ReplyText: "probe complete"}
	if _, err := writer.WriteFrame(0, closeReq); err != nil {
		return err
	}
	if _, err = expect[*amqpwire.CloseOk](reader, &logger); err != nil {
		return err
	}
	logger.Info().Msg("connection closed cleanly")

	return writer.Close()
}

// expect reads the next frame and asserts its type. A server-initiated Close
// is answered with CloseOk and reported as an error.
func expect[T amqpwire.Frame](reader *amqpwire.Reader, logger *zerolog.Logger) (T, error) {
	var zero T

	channel, frame, err := reader.ReadFrame()
	if err != nil {
		return zero, err
	}
	logger.Debug().Uint16("channel", channel).Type("frame", frame).Msg("received frame")

	if closed, ok := frame.(*amqpwire.Close); ok {
		return zero, fmt.Errorf("server closed connection: %d %s", closed.ReplyCode, closed.ReplyText)
	}
	want, ok := frame.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected frame %T on channel %d", frame, channel)
	}
	return want, nil
}
