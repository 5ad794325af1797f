package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"tally/internal/cli"
	apphttp "tally/internal/http"
	"tally/internal/log"
)

func main() {
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig(cli.SetupLogger(os.Getenv("LOG_LEVEL")))
	logger := cli.SetupLogger(cfg.LogLevel)

	res := cli.InitBackend(context.Background(), logger, cfg, true)

	srv, err := apphttp.NewServer(cfg.Addr(), res.Service, logger)
	if err != nil {
		logger.Error("Failed to initialize HTTP server", log.FieldError, err)
		_ = res.Close()
		os.Exit(1)
	}

	ctx, cancel, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := res.Close(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})
	defer cancel()

	logger.Info("Starting tally server",
		"addr", cfg.Addr(),
		"backend", cfg.DataBackend,
		"events", cfg.AMQPURL != "")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "addr", cfg.Addr())
		cancel()
		<-done
		os.Exit(1)
	}

	<-ctx.Done()
	<-done
	logger.Info("Server stopped gracefully")
}
