package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/ragline/ragline/pkg/cmd"
	"github.com/ragline/ragline/pkg/llm"
	"github.com/ragline/ragline/pkg/log"
	"github.com/ragline/ragline/pkg/otelhelper"
	"github.com/ragline/ragline/pkg/services"
	"github.com/ragline/ragline/pkg/workflow"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "ragline-api",
		Usage:                 "Run RAG pipeline workflows over a REST API",
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
				Usage:    "Database connection URL for persistence (file path, postgres:// or redis://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (memory, kafka)",
				Value:   "memory",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "upload-dir",
				Usage:   "Directory for temporary file uploads",
				Value:   "./uploads",
				Sources: cli.EnvVars("UPLOAD_DIR"),
			},
			&cli.DurationFlag{
				Name:    "llm-timeout",
				Usage:   "Timeout for outbound model calls (0 disables it)",
				Value:   0,
				Sources: cli.EnvVars("LLM_TIMEOUT"),
			},
			&cli.DurationFlag{
				Name:    "conversation-ttl",
				Usage:   "Delete conversations idle for longer than this (0 disables retention)",
				Value:   0,
				Sources: cli.EnvVars("CONVERSATION_TTL"),
			},
			&cli.StringFlag{
				Name:    "retention-schedule",
				Usage:   "Cron schedule for the conversation retention sweep",
				Value:   "@hourly",
				Sources: cli.EnvVars("RETENTION_SCHEDULE"),
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

			logger.InfoContext(ctx, "Initializing ragline API")

			if _, err := otelhelper.NewTracer(ctx, "ragline-api"); err != nil {
				logger.WarnContext(ctx, "Tracing disabled", "error", err)
			}

			persistence := cmd.MustNewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			gateway := llm.NewGateway(logger, command.Duration("llm-timeout"))
			registry := cmd.NewRegistry(logger, persistence, gateway)
			executor := workflow.NewExecutor(persistence.Workflows(), registry, eventBus, logger)

			retention := services.NewRetention(
				persistence.Conversations(),
				command.Duration("conversation-ttl"),
				command.String("retention-schedule"),
				logger,
			)
			if err := retention.Start(ctx); err != nil {
				return err
			}
			defer retention.Stop()

			if err := os.MkdirAll(command.String("upload-dir"), 0o755); err != nil {
				return err
			}

			api := NewAPI(logger, persistence, registry, executor, command.String("upload-dir"))

			return api.Start(command.Int("port"))
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
