package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/nexatrade/orderflow/internal/api"
	"github.com/nexatrade/orderflow/internal/config"
	"github.com/nexatrade/orderflow/internal/events"
	"github.com/nexatrade/orderflow/internal/execution"
	"github.com/nexatrade/orderflow/internal/orders"
	"github.com/nexatrade/orderflow/internal/risk"
	"github.com/nexatrade/orderflow/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Durable store
	// TranslateError lets the store map duplicate-key violations to
	// gorm.ErrDuplicatedKey.
	db, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{TranslateError: true})
	if err != nil {
		zapLogger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		zapLogger.Fatal("failed to access sql pool", zap.Error(err))
	}
	sqlDB.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)

	durable := orders.NewPostgresStore(db, zapLogger, cfg.Postgres.OpTimeout)
	if err := durable.Migrate(ctx); err != nil {
		zapLogger.Fatal("failed to migrate orders table", zap.Error(err))
	}

	// Fast cache
	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		PoolSize:     cfg.Redis.PoolSize,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		zapLogger.Fatal("failed to connect to redis", zap.Error(err))
	}
	cache := orders.NewRedisCache(redisClient, zapLogger, cfg.Redis.RecordTTL, cfg.Redis.OpTimeout)

	// Risk gate
	maxQty, err := decimal.NewFromString(cfg.Risk.MaxQuantity)
	if err != nil {
		zapLogger.Fatal("bad risk.max_quantity", zap.Error(err))
	}
	maxNotional, err := decimal.NewFromString(cfg.Risk.MaxNotional)
	if err != nil {
		zapLogger.Fatal("bad risk.max_notional", zap.Error(err))
	}
	riskGate := risk.NewService(risk.Limits{
		MaxQuantity:    maxQty,
		MaxNotional:    maxNotional,
		AllowedSymbols: cfg.Risk.AllowedSymbols,
	}, zapLogger)

	// Event stream
	var publisher orders.EventPublisher
	if cfg.Kafka.Enabled {
		kafkaPublisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, zapLogger)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	}

	store := orders.NewStore(orders.Config{
		QueueCapacity:      cfg.Orders.QueueCapacity,
		DrainInterval:      cfg.Orders.DrainInterval,
		MaxResolveAttempts: cfg.Orders.MaxResolveAttempts,
		RetryBackoff:       cfg.Orders.RetryBackoff,
		HotCacheSize:       cfg.Orders.HotCacheSize,
		MetricsWindow:      cfg.Orders.MetricsWindow,
	}, cache, durable, riskGate, execution.NewImmediateFill(zapLogger), publisher, zapLogger)
	store.Start(ctx)

	server := api.NewServer(store, zapLogger, map[string]api.HealthChecker{
		"postgres": durable,
		"redis":    cache,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zapLogger.Info("starting HTTP server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("HTTP shutdown failed", zap.Error(err))
	}
	if err := redisClient.Close(); err != nil {
		zapLogger.Error("redis close failed", zap.Error(err))
	}
}
