// Package main provides the flowedit API server.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dukex/flowedit/pkg/cmd"
	"github.com/dukex/flowedit/pkg/history"
	"github.com/dukex/flowedit/pkg/log"
	"github.com/dukex/flowedit/pkg/metrics"
	"github.com/dukex/flowedit/pkg/otelhelper"
	"github.com/dukex/flowedit/pkg/palette"
	"github.com/dukex/flowedit/pkg/sessions"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "flowedit-api",
		Usage:                 "Serve stored workflows and their editor sessions",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Persistence URL (file://, postgres://, redis://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers, for the kafka event bus",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "palette-file",
				Usage:   "YAML or JSON file extending the node palette",
				Sources: cli.EnvVars("PALETTE_FILE"),
			},
			&cli.IntFlag{
				Name:    "history-depth",
				Usage:   "Undo steps kept per session",
				Value:   history.DefaultMaxDepth,
				Sources: cli.EnvVars("HISTORY_DEPTH"),
			},
			&cli.DurationFlag{
				Name:    "session-idle-timeout",
				Usage:   "Close sessions unused for this long",
				Value:   sessions.DefaultIdleTimeout,
				Sources: cli.EnvVars("SESSION_IDLE_TIMEOUT"),
			},
			&cli.StringFlag{
				Name:    "reaper-schedule",
				Usage:   "Cron schedule of the idle session reaper",
				Value:   "@every 1m",
				Sources: cli.EnvVars("REAPER_SCHEDULE"),
			},
			&cli.BoolFlag{
				Name:    "otel-enabled",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Action: run,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.SetupWriter(os.Stderr, command.String("log-level"), command.String("log-format"))

	logger := log.WithModule("api")
	logger.InfoContext(ctx, "Initializing flowedit API")

	opts := []sessions.Option{
		sessions.WithHistoryDepth(command.Int("history-depth")),
		sessions.WithIdleTimeout(idleTimeoutOrDefault(command.Duration("session-idle-timeout"))),
	}

	if command.Bool("otel-enabled") {
		tracer, err := otelhelper.NewTracer(ctx, "flowedit-api")
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}

		opts = append(opts, sessions.WithTracer(tracer))
	}

	if path := command.String("palette-file"); path != "" {
		p, err := palette.FromFile(path)
		if err != nil {
			return err
		}

		opts = append(opts, sessions.WithPalette(p))
	}

	persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}

	defer func() {
		if err := persistence.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	if err := sessions.NewPersister(persistence, log.WithModule("persister")).Register(eventBus); err != nil {
		return err
	}

	if err := eventBus.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to events: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts = append(opts, sessions.WithMetrics(metrics.New(registry)), sessions.WithLogger(log.WithModule("sessions")))

	manager := sessions.NewManager(persistence, eventBus, opts...)
	defer func() {
		if err := manager.CloseAll(); err != nil {
			logger.ErrorContext(ctx, "Failed to close sessions", "error", err)
		}
	}()

	if err := manager.StartReaper(command.String("reaper-schedule")); err != nil {
		return err
	}

	return NewAPI(logger, persistence, manager, registry).Start(command.Int("port"))
}

// idleTimeoutOrDefault keeps non-positive timeouts from reaping every session.
func idleTimeoutOrDefault(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return sessions.DefaultIdleTimeout
	}

	return timeout
}
