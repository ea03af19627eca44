package main

import (
	"context"
	"os"
	"time"

	"metricsdash/internal/amqp"
	"metricsdash/internal/cli"
	"metricsdash/internal/core"
	applog "metricsdash/internal/log"
	"metricsdash/internal/services"
	"metricsdash/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting metricsdash-ingest")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for ingestion",
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		os.Exit(1)
	}

	res, err := cli.OpenWritableStore(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to open record store",
			applog.FieldError, err,
			applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer cli.CloseStore(logger, res)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		cli.CloseStore(logger, res)
		os.Exit(1)
	}
	defer client.Close()

	ingest := worker.NewIngestWorker(res.Store, core.MetricSchema, logger.WithComponent(applog.ComponentWorker))
	processor := services.NewIngestProcessor(client, ingest.HandleBatch)

	runCtx, stop := context.WithCancel(context.Background())
	defer stop()
	if err := processor.Start(runCtx); err != nil {
		logger.Error("Failed to start ingest processor", applog.FieldError, err)
		os.Exit(1)
	}

	// A consumer that gives up on its own ends the process too.
	parent, cancelParent := context.WithCancel(context.Background())
	go func() {
		<-processor.Done()
		cancelParent()
	}()

	ctx, done := cli.GracefulShutdown(parent, logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := processor.Stop(shutdownCtx); err != nil {
			logger.Error("Ingest processor stop error", applog.FieldError, err)
		}
	})
	cli.WaitForShutdown(ctx, done)
	cancelParent()

	if err := processor.Err(); err != nil {
		logger.Error("Ingest processor failed", applog.FieldError, err)
		client.Close()
		cli.CloseStore(logger, res)
		os.Exit(1)
	}
	logger.Info("metricsdash-ingest stopped")
}
