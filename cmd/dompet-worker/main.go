package main

import (
	"context"
	"os"
	"strings"
	"time"

	"dompet/internal/amqp"
	"dompet/internal/backend"
	"dompet/internal/cli"
	"dompet/internal/config"
	"dompet/internal/log"
	"dompet/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting dompet-worker")

	cfg := config.Load()
	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	mirrors, err := backend.BuildMirrors(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize mirrors", log.FieldError, err)
		os.Exit(1)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	w := worker.NewMirrorWorker(repo, logger, mirrors...)
	ctx, done := cli.GracefulShutdown(logger, 15*time.Second, nil)

	logger.Info("Consuming transaction events",
		"queue", cfg.AMQPQueue,
		log.FieldMirror, strings.Join(w.Mirrors(), ","))
	if err := w.Run(ctx, client); err != nil {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
