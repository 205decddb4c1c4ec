package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	normapp "github.com/capazme/VisuaLex-Beta/internal/application/norm"
	"github.com/capazme/VisuaLex-Beta/internal/domain/norm"
	"github.com/capazme/VisuaLex-Beta/internal/infrastructure/browser"
	"github.com/capazme/VisuaLex-Beta/internal/infrastructure/cache"
	"github.com/capazme/VisuaLex-Beta/internal/infrastructure/config"
	"github.com/capazme/VisuaLex-Beta/internal/infrastructure/logger"
	"github.com/capazme/VisuaLex-Beta/internal/infrastructure/persistence"
	"github.com/capazme/VisuaLex-Beta/internal/infrastructure/render"
	"github.com/capazme/VisuaLex-Beta/internal/infrastructure/scraper"
	"github.com/capazme/VisuaLex-Beta/internal/interfaces/http/handler"
	"github.com/capazme/VisuaLex-Beta/internal/interfaces/http/middleware"
	"github.com/capazme/VisuaLex-Beta/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting VisuaLex",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// History ledger
	var ledger norm.HistoryLedger
	switch cfg.Storage.HistoryDriver {
	case "sqlite":
		db, err := persistence.NewSQLiteDatabase(cfg.Storage.HistoryPath)
		if err != nil {
			log.Fatal("Failed to open history database", zap.Error(err))
		}
		ledger = persistence.NewGormHistoryLedger(db)
		log.Info("History ledger backed by SQLite", zap.String("path", cfg.Storage.HistoryPath))
	default:
		ledger = persistence.NewInMemoryHistoryLedger()
		log.Info("History ledger kept in memory")
	}

	// Register and commentary clients
	registerClient := scraper.NewNormattivaClient(scraper.Config{
		BaseURL:   cfg.Scraper.RegisterBaseURL,
		Timeout:   cfg.Scraper.Timeout,
		UserAgent: cfg.Scraper.UserAgent,
	}, log)
	commentaryClient := scraper.NewBrocardiClient(scraper.Config{
		BaseURL:   cfg.Scraper.CommentaryBaseURL,
		Timeout:   cfg.Scraper.Timeout,
		UserAgent: cfg.Scraper.UserAgent,
	}, log)

	// Shared rendering browser
	browserManager := browser.NewManager(browser.Config{
		RemoteURL:      cfg.Browser.RemoteURL,
		Headless:       cfg.Browser.Headless,
		DisableGPU:     cfg.Browser.DisableGPU,
		NoSandbox:      cfg.Browser.NoSandbox,
		StartupTimeout: cfg.Browser.StartupTimeout,
	}, browser.WithLogger(log))
	defer browserManager.Shutdown()

	// PDF artifact storage and exporter
	storage, err := render.NewStorage(cfg.Storage.DownloadDir)
	if err != nil {
		log.Fatal("Failed to create download directory", zap.Error(err))
	}
	exporter := render.NewExporter(render.Config{
		BaseURL:         registerClient.BaseURL(),
		Timeout:         cfg.Render.Timeout,
		Scale:           cfg.Render.Scale,
		PrintBackground: cfg.Render.PrintBackground,
	}, storage, log)

	// Service options, including the optional shared text store
	opts := []normapp.ServiceOption{
		normapp.WithCacheTTL(cfg.Cache.TTL),
		normapp.WithCacheCapacity(cfg.Cache.Capacity),
		normapp.WithServiceLogger(log),
	}
	if cfg.Redis.Enabled {
		textStore, err := cache.NewRedisTextStore(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Cache.TTL)
		if err != nil {
			log.Warn("Redis unavailable, running without shared text store", zap.Error(err))
		} else {
			defer textStore.Close()
			opts = append(opts, normapp.WithTextStore(textStore))
			log.Info("Shared article text store connected",
				zap.String("host", cfg.Redis.Host), zap.Int("port", cfg.Redis.Port))
		}
	}

	normService := normapp.NewNormService(
		registerClient, commentaryClient, browserManager, exporter, storage, ledger, opts...)
	defer normService.Close()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig()))

	normHandler := handler.NewNormHandler(normService, log)
	healthHandler := handler.NewHealthHandler(cfg.App.Name, browserManager)

	healthHandler.RegisterRoutes(engine)
	normHandler.RegisterDownloadRoutes(engine)

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(normHandler).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
}
