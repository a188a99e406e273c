package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ressKim-io/sentiment-api/internal/adapter/client"
	"github.com/ressKim-io/sentiment-api/internal/adapter/http/router"
	"github.com/ressKim-io/sentiment-api/internal/domain/service"
	"github.com/ressKim-io/sentiment-api/internal/infrastructure/config"
	"github.com/ressKim-io/sentiment-api/internal/infrastructure/logger"
	"github.com/ressKim-io/sentiment-api/internal/infrastructure/metrics"
	"github.com/ressKim-io/sentiment-api/internal/infrastructure/model"
	"github.com/ressKim-io/sentiment-api/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log, err := logger.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	// Set Gin mode
	gin.SetMode(cfg.Server.Mode)

	// The slot reports the configured model until the real one is loaded
	slot := model.NewSlot(service.ModelInfo{
		ID:      cfg.Model.ID,
		Backend: cfg.Model.Backend,
		Device:  cfg.Model.Device,
	})
	defer slot.Close()

	m := metrics.New()
	m.RegisterModel(slot)

	loader := model.NewLoader(newSource(cfg, log), slot, model.LoaderOptions{
		Workers:   cfg.Server.Workers,
		QueueSize: cfg.Server.QueueSize,
		Timeout:   cfg.Model.LoadTimeout,
	}, log)

	sentimentUC := usecase.NewSentimentUsecase(slot, usecase.Options{
		MaxTextLength: cfg.Model.MaxTextLength,
		MaxBatchSize:  cfg.Model.MaxBatchSize,
	}, m, log)

	// Setup router
	r := router.Setup(sentimentUC, m, log)

	// Create HTTP server
	addr := cfg.Server.Addr()
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  2 * cfg.Server.ReadTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Serve while the model loads so /health can report progress
	serveErr := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	loadErr := make(chan error, 1)
	go func() {
		loadErr <- loader.Load(ctx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Received shutdown signal")
	case err := <-serveErr:
		log.Error("Server failed", zap.Error(err))
		runErr = fmt.Errorf("server failed: %w", err)
	case err := <-loadErr:
		if err != nil {
			// startup failure is fatal: stop serving and exit non-zero
			runErr = err
			break
		}
		select {
		case <-ctx.Done():
			log.Info("Received shutdown signal")
		case err := <-serveErr:
			log.Error("Server failed", zap.Error(err))
			runErr = fmt.Errorf("server failed: %w", err)
		}
	}

	log.Info("Shutting down server...")
	slot.BeginShutdown()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Drain in-flight predictions before exit
	slot.Close()

	log.Info("Server exited")
	return runErr
}

func newSource(cfg *config.Config, log *zap.Logger) model.Source {
	if cfg.Model.Backend == config.BackendRemote {
		c := client.NewInferenceClient(cfg.Model.BackendURL, cfg.Model.RequestTimeout)
		return client.NewRemoteSource(c, &cfg.Model, log.Named("remote"))
	}
	return model.NewEmbeddedSource(&cfg.Model)
}
