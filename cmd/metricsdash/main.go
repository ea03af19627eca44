package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"metricsdash/internal/cli"
	apphttp "metricsdash/internal/http"
	applog "metricsdash/internal/log"
	"metricsdash/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	res, err := cli.OpenStore(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to open record store",
			applog.FieldError, err,
			applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	defer cli.CloseStore(logger, res)

	query := services.NewQueryService(res.Store, services.QueryServiceConfig{
		Backend:      cfg.DataBackend,
		CacheTTL:     cfg.CacheTTL,
		FetchTimeout: cfg.FetchTimeout,
	}, logger)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:            ":" + cfg.Port,
		Query:           query,
		Source:          res.Store,
		Company:         cfg.Company,
		Logger:          logger,
		CleanupInterval: 5 * time.Minute,
	})

	g, gctx := errgroup.WithContext(context.Background())
	ctx, done := cli.GracefulShutdown(gctx, logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})

	g.Go(func() error {
		logger.Info("Starting metricsdash server",
			"port", cfg.Port,
			applog.FieldBackend, cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	cli.WaitForShutdown(ctx, done)
	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		cli.CloseStore(logger, res)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
