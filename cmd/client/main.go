package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"aphangman.ai/internal/config"
	"aphangman.ai/internal/session"
	"aphangman.ai/internal/trace"
	"aphangman.ai/internal/transport/ws"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	_ = godotenv.Load()

	var (
		configPath string
		server     string
		slot       string
		password   string
		logLevel   string
		logFormat  string
		traceDir   string
	)
	flagSet := pflag.NewFlagSet("aphangman", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to client.yaml")
	flagSet.StringVar(&server, "server", "", "multiworld server, e.g. ws://localhost:38281")
	flagSet.StringVar(&slot, "slot", "", "slot name")
	flagSet.StringVar(&password, "password", "", "room password")
	flagSet.StringVar(&logLevel, "log-level", "", "trace|debug|info|warn|error")
	flagSet.StringVar(&logFormat, "log-format", "", "console|json")
	flagSet.StringVar(&traceDir, "trace-dir", "", "write a zstd packet trace under this directory")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if flagSet.Changed("server") {
		cfg.Server = server
	}
	if flagSet.Changed("slot") {
		cfg.Slot = slot
	}
	if flagSet.Changed("password") {
		cfg.Password = password
	}
	if flagSet.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flagSet.Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	if flagSet.Changed("trace-dir") {
		cfg.TraceDir = traceDir
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	client := ws.NewClient(ws.Config{
		URL:              cfg.Server,
		Game:             cfg.Game,
		Slot:             cfg.Slot,
		Password:         cfg.Password,
		HandshakeTimeout: cfg.HandshakeTimeout,
		BackoffMin:       cfg.Reconnect.Min,
		BackoffMax:       cfg.Reconnect.Max,
	}, logger)
	sess := session.New(session.Config{
		Game:          cfg.Game,
		Slot:          cfg.Slot,
		StatusCommand: cfg.StatusCommand,
	}, client, logger)
	client.SetHandler(sess)

	if cfg.TraceDir != "" {
		pt := trace.NewPacketTrace(cfg.TraceDir, cfg.Slot)
		defer func() {
			in, out := pt.Counts()
			if err := pt.Close(); err != nil {
				logger.Warn().Err(err).Msg("packet trace close")
			}
			logger.Info().Int("in", in).Int("out", out).Str("dir", cfg.TraceDir).Msg("packet trace closed")
		}()
		client.SetRecorder(pt)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("server", cfg.Server).Str("slot", cfg.Slot).Str("game", cfg.Game).Msg("starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sess.Run(gctx) })
	g.Go(func() error { return client.Run(gctx) })
	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		logger.Info().Msg("stopped")
		return nil
	}
	return err
}

func newLogger(cfg config.Config) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log_level: %w", err)
	}
	var logger zerolog.Logger
	if cfg.LogFormat == "json" {
		logger = zerolog.New(os.Stderr)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	return logger.Level(lvl).With().Timestamp().Logger(), nil
}
