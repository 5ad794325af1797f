package main

import (
	"context"
	"os"
	"time"

	"tally/internal/amqp"
	"tally/internal/cli"
	"tally/internal/log"
	"tally/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig(cli.SetupLogger(os.Getenv("LOG_LEVEL")))
	logger := cli.SetupLogger(cfg.LogLevel)
	logger.Info("Starting tally-worker", "interval", cfg.SummaryInterval.String())
	if cfg.DataBackend == "memory" {
		logger.Warn("Memory backend is private to this process; summaries will stay empty")
	}

	// The worker only reads; it never publishes events itself
	res := cli.InitBackend(context.Background(), logger, cfg, false)

	var consumer worker.EventConsumer
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			_ = res.Close()
			os.Exit(1)
		}
		amqpClient, consumer = client, client
	}

	ctx, cancel, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("AMQP close error", log.FieldError, err)
			}
		}
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	w := worker.NewSummaryWorker(res.Service, logger)
	err := w.Run(ctx, consumer, cfg.SummaryInterval)
	cancel()
	<-done

	if err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
