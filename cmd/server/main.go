package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/foodvision/food-vision/internal/classifier"
	"github.com/foodvision/food-vision/internal/config"
	"github.com/foodvision/food-vision/internal/handlers"
	"github.com/foodvision/food-vision/internal/labels"
	"github.com/foodvision/food-vision/internal/logger"
	"github.com/foodvision/food-vision/internal/model"
	"github.com/foodvision/food-vision/internal/router"
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

	gin.SetMode(cfg.Server.Mode)

	meta, err := model.LoadMetadata(cfg.Model.MetadataPath)
	if err != nil {
		return fmt.Errorf("failed to load model metadata: %w", err)
	}

	table, source, err := labels.Resolve(cfg.Model.LabelsPath, meta.Classes)
	if err != nil {
		return fmt.Errorf("failed to load labels: %w", err)
	}
	log.Info("Labels loaded", zap.String("source", source), zap.Int("classes", table.Len()))

	if err := model.InitRuntime(cfg.Model.RuntimeLibrary); err != nil {
		return err
	}
	defer model.ShutdownRuntime()

	// Object store is optional; without it s3:// paths fail to load
	var fetcher model.Fetcher
	store, err := model.NewObjectStore(&cfg.Storage)
	if err != nil {
		return err
	}
	if store != nil {
		fetcher = store
		log.Info("Object store configured", zap.String("endpoint", cfg.Storage.Endpoint))
	}

	manager := model.NewManager(model.ONNXLoader{}, meta, fetcher, log)
	defer manager.Close()

	if cfg.Model.LoadOnStart {
		if err := manager.LoadPath(context.Background(), cfg.Model.Path); err != nil {
			log.Warn("Failed to load model, continuing without one", zap.Error(err))
		}
	}

	clf := classifier.New(manager, meta, table, cfg.Model.TopK)
	h := handlers.NewHandler(clf, manager, handlers.Options{
		DefaultModelPath: cfg.Model.Path,
		MaxUploadBytes:   cfg.Model.MaxUploadBytes,
		MaxImageBytes:    cfg.Model.MaxImageBytes,
		Title:            cfg.UI.Title,
		Theme:            cfg.UI.Theme,
	}, log)

	r := router.Setup(h, log)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
	return nil
}
