package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukex/blitz/pkg/cmd"
	"github.com/dukex/blitz/pkg/engine"
	"github.com/dukex/blitz/pkg/log"
	"github.com/dukex/blitz/pkg/nodes/classifier"
	"github.com/dukex/blitz/pkg/services"
	"github.com/dukex/blitz/pkg/sessions"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "blitz-api",
		Usage:                 "Serve the chat and pipeline configuration API",
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
				Usage:    "Workflow store URL (file://path or postgres://...)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "session-store-url",
				Usage:   "Conversation store URL (file://path or redis://...)",
				Value:   "file://./data",
				Sources: cli.EnvVars("SESSION_STORE_URL"),
			},
			&cli.IntFlag{
				Name:    "session-max-messages",
				Usage:   "Messages kept per conversation",
				Value:   sessions.DefaultMaxMessages,
				Sources: cli.EnvVars("SESSION_MAX_MESSAGES"),
			},
			&cli.DurationFlag{
				Name:    "session-ttl",
				Usage:   "How long an idle conversation is kept",
				Value:   sessions.DefaultTTL,
				Sources: cli.EnvVars("SESSION_TTL"),
			},
			&cli.StringFlag{
				Name:    "session-prune-schedule",
				Usage:   "Cron schedule for pruning idle file sessions",
				Value:   sessions.DefaultPruneSchedule,
				Sources: cli.EnvVars("SESSION_PRUNE_SCHEDULE"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.BoolFlag{
				Name:    "log-events",
				Usage:   "Log execution and workflow events read from the event bus",
				Sources: cli.EnvVars("LOG_EVENTS"),
			},
			&cli.StringFlag{
				Name:     "credential-secret",
				Usage:    "Secret the credential encryption key is derived from",
				Required: true,
				Sources:  cli.EnvVars("BLITZ_CREDENTIAL_SECRET"),
			},
			&cli.DurationFlag{
				Name:    "llm-timeout",
				Usage:   "Timeout of a single language model call",
				Value:   classifier.DefaultTimeout,
				Sources: cli.EnvVars("LLM_TIMEOUT"),
			},
			&cli.BoolFlag{
				Name:    "otel-enabled",
				Usage:   "Export traces over OTLP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.Float64Flag{
				Name:    "otel-sample-ratio",
				Usage:   "Fraction of executions traced when tracing is enabled",
				Value:   1,
				Sources: cli.EnvVars("OTEL_SAMPLE_RATIO"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.InfoContext(ctx, "Initializing Blitz API")

			tracer, shutdownTracer, err := cmd.NewTracer(ctx, command.Bool("otel-enabled"), "blitz-api", command.Float64("otel-sample-ratio"))
			if err != nil {
				return fmt.Errorf("failed to initialize tracer: %w", err)
			}

			defer func() {
				if err := shutdownTracer(context.Background()); err != nil {
					logger.ErrorContext(ctx, "Failed to shutdown tracer", "error", err)
				}
			}()

			credentialStore, err := cmd.NewCredentialStore(command.String("credential-secret"))
			if err != nil {
				return err
			}

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(context.Background()); err != nil {
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

			if command.Bool("log-events") {
				if err := registerEventLog(eventBus, logger); err != nil {
					return err
				}

				if err := eventBus.Subscribe(ctx); err != nil {
					return fmt.Errorf("failed to subscribe to events: %w", err)
				}
			}

			sessionStore, err := cmd.NewSessionStore(ctx, logger,
				command.String("session-store-url"),
				command.Int("session-max-messages"),
				command.Duration("session-ttl"))
			if err != nil {
				return err
			}

			defer func() {
				if err := sessionStore.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close session store", "error", err)
				}
			}()

			if pruner, ok := sessionStore.(sessions.Pruner); ok {
				stopPruner, err := startPruner(ctx, pruner, command.String("session-prune-schedule"), command.Duration("session-ttl"), logger)
				if err != nil {
					return err
				}

				defer stopPruner()
			}

			registry := cmd.NewRegistry(logger)

			workflows := services.NewWorkflow(persistence, registry, eventBus, logger)
			chat := services.NewChat(workflows, sessionStore, engine.Dependencies{
				Credentials: credentialStore,
				Publisher:   eventBus,
				Tracer:      tracer,
				Logger:      log.WithModule("engine"),
				LLMTimeout:  command.Duration("llm-timeout"),
			}, logger)

			api := NewAPI(logger, workflows, chat, credentialStore, registry)

			return api.Serve(ctx, command.Int("port"))
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		logger.Error("Blitz API stopped", "error", err)
		os.Exit(1)
	}
}

// startPruner prunes idle sessions of store on schedule and returns the function stopping it.
func startPruner(ctx context.Context, store sessions.Pruner, schedule string, maxAge time.Duration, logger *slog.Logger) (func(), error) {
	pruner, err := sessions.NewScheduledPruner(store, schedule, maxAge, logger)
	if err != nil {
		return nil, err
	}

	if err := pruner.Start(ctx); err != nil {
		return nil, err
	}

	return func() { pruner.Stop(context.Background()) }, nil
}
