package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/skuportal/inventory/config"
	"github.com/skuportal/inventory/database"
	"github.com/skuportal/inventory/inventory"
	"github.com/skuportal/inventory/logger"
	"github.com/skuportal/inventory/media"
	"github.com/skuportal/inventory/models"
	"github.com/skuportal/inventory/pricing"
	"github.com/skuportal/inventory/reporting"
	"github.com/skuportal/inventory/snapshot"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	appLogger, err := logger.New(cfg.Logger, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	// 3. Connect to Database
	db, err := database.Open(cfg.Database)
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	if err := models.AutoMigrate(db); err != nil {
		appLogger.Fatal("Could not migrate database", zap.Error(err))
	}
	reader, err := database.OpenReader(cfg.Database)
	if err != nil {
		appLogger.Fatal("Could not open reporting connection", zap.Error(err))
	}
	defer reader.Close()
	appLogger.Info("Connected to database", zap.String("driver", cfg.Database.Driver))

	// 4. Initialize Services
	store := models.NewStore(db)
	files := media.NewStore(cfg.Storage.MediaRoot)
	reports := reporting.NewReader(reader)

	scheduler := snapshot.NewScheduler(
		snapshot.NewWriter(snapshotPath(cfg.Snapshot, files), reports),
		cfg.Snapshot.Delay,
		cfg.Snapshot.Enabled,
		appLogger,
	)

	calc := pricing.NewCalculator(cfg.Pricing.FeePercent, cfg.Pricing.FixedFee)
	svc := inventory.NewService(store, calc, files, scheduler, appLogger)

	// 5. Initialize HTTP Server
	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: newRouter(routerDeps{
			cfg:       cfg,
			store:     store,
			service:   svc,
			reports:   reports,
			db:        reader,
			files:     files,
			scheduler: scheduler,
			logger:    appLogger,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		appLogger.Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 6. Graceful Shutdown
	<-ctx.Done()
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := scheduler.Close(shutdownCtx); err != nil {
		appLogger.Error("Snapshot scheduler did not stop in time", zap.Error(err))
	}
	appLogger.Info("Server exited")
}

func snapshotPath(cfg config.SnapshotConfig, files *media.Store) string {
	if cfg.Path != "" {
		return cfg.Path
	}
	return files.SnapshotPath()
}
