package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segyhp/fleet-charges/internal/cache"
	"github.com/segyhp/fleet-charges/internal/config"
	"github.com/segyhp/fleet-charges/internal/handler"
	"github.com/segyhp/fleet-charges/internal/observability"
	"github.com/segyhp/fleet-charges/internal/repository"
	"github.com/segyhp/fleet-charges/internal/service"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Initialize Redis
	var (
		redisClient *redis.Client
		chargeCache service.ChargeCache
	)
	if cfg.Redis.Enabled {
		redisClient = initRedis(cfg)
		defer redisClient.Close()
		chargeCache = cache.NewChargeCache(redisClient, cfg.Redis.CacheTTL)
	}

	metrics := observability.NewMetrics()

	// Initialize repositories
	chargeRepo := repository.NewChargeRepository(db)
	installmentRepo := repository.NewInstallmentRepository(db)
	lookupRepo := repository.NewLookupRepository(db)

	// Initialize service
	chargeService := service.NewChargeService(chargeRepo, installmentRepo, lookupRepo, chargeCache, cfg, logger, metrics)
	chargeHandler := handler.NewChargeHandler(chargeService)
	healthHandler := handler.NewHealthHandler(db, redisClient, cfg.GetHealthTimeout())

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler.NewRouter(chargeHandler, healthHandler, metrics, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr), zap.String("env", cfg.Server.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
