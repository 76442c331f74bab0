package main

import (
	"context"
	"os"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/mundotango/compas/pkg/cmd"
	"github.com/mundotango/compas/pkg/engine"
	"github.com/mundotango/compas/pkg/log"
	"github.com/mundotango/compas/pkg/metrics"
	"github.com/mundotango/compas/pkg/otelhelper"
	"github.com/mundotango/compas/pkg/seeds"
	"github.com/mundotango/compas/pkg/triggers/queue"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "compas-api",
		Usage:                 "Run the Mundo Tango workflow automation engine and its API",
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
				Name:    "database-url",
				Usage:   "Database connection URL for workflow persistence",
				Value:   "file://./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for the platform event queue (empty disables the consumer)",
				Sources: cli.EnvVars("REDIS_ADDR"),
			},
			&cli.DurationFlag{
				Name:    "retention",
				Usage:   "How long finished executions stay queryable",
				Value:   engine.DefaultRetention,
				Sources: cli.EnvVars("EXECUTION_RETENTION"),
			},
			&cli.BoolFlag{
				Name:    "seed",
				Usage:   "Install the stock Mundo Tango workflows on startup",
				Value:   true,
				Sources: cli.EnvVars("SEED_WORKFLOWS"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: run,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))
	logger := log.WithModule("api")

	logger.InfoContext(ctx, "Initializing Compás API")

	metrics.Init()

	tracer, err := otelhelper.NewTracer(ctx, "compas-api")
	if err != nil {
		logger.WarnContext(ctx, "Tracing disabled", "error", err)
	}

	registry := cmd.NewRegistry(logger)
	eventBus := cmd.NewEventBus(command.String("event-bus"), logger)

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	store := cmd.NewPersistence(ctx, logger, command.String("database-url"))

	defer func() {
		if err := store.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	eng, err := engine.New(engine.Config{
		Registry:  registry,
		EventBus:  eventBus,
		Store:     store,
		Logger:    logger,
		Tracer:    tracer,
		Retention: command.Duration("retention"),
	})
	if err != nil {
		return err
	}

	if err := eng.Start(ctx); err != nil {
		return err
	}

	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := eng.Stop(stopCtx); err != nil {
			logger.Error("Failed to stop engine", "error", err)
		}
	}()

	if command.Bool("seed") {
		if err := seeds.Install(ctx, eng); err != nil {
			return err
		}

		logger.InfoContext(ctx, "Stock workflows installed")
	}

	if addr := command.String("redis-addr"); addr != "" {
		consumer, err := queue.NewConsumer(map[string]string{"addr": addr}, eng, logger)
		if err != nil {
			return err
		}

		if err := consumer.Start(ctx); err != nil {
			return err
		}

		defer func() {
			if err := consumer.Stop(ctx); err != nil {
				logger.Error("Failed to stop queue consumer", "error", err)
			}
		}()
	}

	if err := eventBus.Subscribe(ctx); err != nil {
		return err
	}

	api := NewAPI(logger, eng)

	return api.Start(command.Int("port"))
}
