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
	_ "time/tzdata" // IANA zones for /meals/daily on hosts without zoneinfo

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/vnprr/SnapDish/internal/auth"
	"github.com/vnprr/SnapDish/internal/config"
	"github.com/vnprr/SnapDish/internal/database"
	"github.com/vnprr/SnapDish/internal/handler"
	"github.com/vnprr/SnapDish/internal/middleware"
	"github.com/vnprr/SnapDish/internal/service"
	"github.com/vnprr/SnapDish/internal/storage"
	"github.com/vnprr/SnapDish/internal/storage/mongo"
	"github.com/vnprr/SnapDish/internal/storage/sqlite"
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

	store, err := openStore(cfg.Storage)
	if err != nil {
		logger.Error("Failed to initialize storage", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()
	logger.Info("Storage initialized", "driver", cfg.Storage.Driver)

	gateway, err := vision.LoadGateway(cfg.Models.Classification, cfg.Models.Regression,
		&http.Client{Timeout: cfg.Models.Timeout})
	if err != nil {
		logger.Error("Failed to load models", "error", err)
		os.Exit(1)
	}
	logger.Info("Models loaded", "classes", len(gateway.Classes()))

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret, err = auth.RandomSecret()
		if err != nil {
			logger.Error("Failed to generate JWT secret", "error", err)
			os.Exit(1)
		}
		logger.Warn("No JWT secret configured; tokens will not survive a restart")
	}
	jwtManager := auth.NewJWTManager(secret, cfg.Auth.JWTExpiry)

	authSvc := service.NewAuthService(auth.NewPasswordAuthenticator(store), jwtManager, store, logger)
	mealSvc := service.NewMealService(store, service.MealOptions{
		RestrictIngredientsToOwner: cfg.Meals.RestrictIngredientsToOwner,
	}, logger)

	checks := map[string]handler.Pinger{"storage": store}

	routerCfg := handler.RouterConfig{
		Logger:         logger,
		Auth:           authSvc,
		Meals:          mealSvc,
		Analyzer:       gateway,
		Checks:         checks,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		MaxUploadBytes: cfg.Meals.MaxUploadBytes,
		RequestTimeout: cfg.Server.RequestTimeout,
		RateLimitConfig: middleware.RateLimitConfig{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			BurstSize:         cfg.RateLimit.BurstSize,
		},
	}

	if cfg.Redis.Enabled {
		redis, err := database.NewRedis(cfg.Redis)
		if err != nil {
			logger.Error("Failed to connect to Redis", "addr", cfg.Redis.Addr(), "error", err)
			os.Exit(1)
		}
		defer redis.Close()
		checks["redis"] = redis
		if cfg.RateLimit.Enabled {
			routerCfg.RateLimiter = redis
		}
		logger.Info("Redis connected", "addr", cfg.Redis.Addr())
	} else if cfg.RateLimit.Enabled {
		logger.Warn("Rate limiting needs Redis; running without it")
	}

	// h2c serves HTTP/2 without TLS alongside HTTP/1.1
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      h2c.NewHandler(handler.NewRouter(routerCfg), &http2.Server{}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("API server starting", "address", srv.Addr, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	logger.Info("Server stopped")
}

// openStore connects the configured persistence backend.
func openStore(cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Driver {
	case "mongo":
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return mongo.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return sqlite.New(cfg.SQLitePath)
	}
}
