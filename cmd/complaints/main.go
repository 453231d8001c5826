package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	complaintapp "github.com/orderly/backend/internal/application/complaint"
	"github.com/orderly/backend/internal/infrastructure/config"
	"github.com/orderly/backend/internal/infrastructure/event"
	"github.com/orderly/backend/internal/infrastructure/logger"
	"github.com/orderly/backend/internal/infrastructure/persistence"
	"github.com/orderly/backend/internal/infrastructure/reconciler"
	"github.com/orderly/backend/internal/interfaces/http/handler"
	"github.com/orderly/backend/internal/interfaces/http/middleware"
	"github.com/orderly/backend/internal/interfaces/http/router"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("starting complaints service",
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	complaintRepo := persistence.NewGormComplaintRepository(db.DB)
	allocator := persistence.NewGormSequenceAllocator(db.DB)
	outboxRepo := persistence.NewGormOutboxRepository(db.DB)

	ctx := context.Background()

	bus := event.NewInMemoryEventBus(log)
	bus.Subscribe(event.NewAuditLogHandler(log))
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	complaintService := complaintapp.NewService(complaintRepo, allocator)
	complaintService.SetEventPublisher(bus)

	var worker *reconciler.Worker
	if cfg.Reconciler.Enabled {
		deliverer := reconciler.NewHTTPDeliverer(cfg.Reconciler.ProfilesURL, cfg.Reconciler.RequestTimeout)
		worker = reconciler.NewWorker(outboxRepo, deliverer, reconciler.Config{
			BatchSize:        cfg.Reconciler.BatchSize,
			PollInterval:     cfg.Reconciler.PollInterval,
			MaxRetries:       cfg.Reconciler.MaxRetries,
			CleanupEnabled:   cfg.Reconciler.CleanupEnabled,
			CleanupRetention: cfg.Reconciler.CleanupRetention,
		}, log)
		if err := worker.Start(ctx); err != nil {
			log.Fatal("Failed to start reconciler", zap.Error(err))
		}
	} else {
		log.Warn("reconciler disabled, customer rollups will go stale")
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	handler.NewHealthHandler(db.DB, "complaints", version).RegisterRoutes(engine)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.NewComplaintHandler(complaintService))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
	if worker != nil {
		if err := worker.Stop(shutdownCtx); err != nil {
			log.Error("Reconciler shutdown failed", zap.Error(err))
		}
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Event bus shutdown failed", zap.Error(err))
	}

	log.Info("complaints service stopped")
}
