package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vnprr/SnapDish/internal/config"
	"github.com/vnprr/SnapDish/internal/demo"
	"github.com/vnprr/SnapDish/internal/vision"
	"github.com/vnprr/SnapDish/pkg/logging"
)

func main() {
	logging.Setup()
	logger := slog.Default()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	gateway, err := vision.LoadGateway(cfg.Models.Classification, cfg.Models.Regression,
		&http.Client{Timeout: cfg.Models.Timeout})
	if err != nil {
		logger.Error("Failed to load models", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         cfg.Demo.Addr(),
		Handler:      demo.NewServer(gateway, cfg.Meals.MaxUploadBytes, logger).Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("Demo server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
}
