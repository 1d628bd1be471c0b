// Package main is the entry point for the mise inventory API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mise/internal/domain/conversion"
	"mise/internal/domain/ledger"
	"mise/internal/domain/stock"
	v1 "mise/internal/infrastructure/http/v1"
	"mise/internal/infrastructure/metrics"
	"mise/internal/infrastructure/storage/postgres"
	"mise/internal/infrastructure/storage/postgres/catalog_repo"
	"mise/internal/infrastructure/storage/postgres/ledger_repo"
	"mise/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)
	log.Info("starting mise server")

	dsn := mustEnv("DATABASE_URL")

	// --- Migrations ---
	if getEnv("MIGRATE_ON_START", "true") == "true" {
		if err := postgres.Migrate(ctx, dsn); err != nil {
			log.Fatalw("failed to run migrations", "error", err)
		}
	}

	// --- Connection pool ---
	poolCfg := postgres.DefaultPoolConfig(dsn)
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Repositories ---
	uomRepo := catalog_repo.NewUomRepo(txManager)
	conversionRepo := catalog_repo.NewConversionRepo(txManager)
	locationRepo := catalog_repo.NewLocationRepo(txManager)
	variantRepo := catalog_repo.NewVariantRepo(txManager)
	movementRepo := ledger_repo.NewMovementRepo(txManager)
	stockRepo := ledger_repo.NewStockRepo(txManager)

	// --- Journal ---
	journal, err := postgres.NewMovementJournal(txManager)
	if err != nil {
		log.Fatalw("failed to initialize movement journal", "error", err)
	}

	// --- Services ---
	resolver := conversion.NewResolver(conversionRepo)

	metricsEnabled := getEnv("METRICS_ENABLED", "true") == "true"
	var recorder ledger.Recorder
	if metricsEnabled {
		recorder = metrics.NewRecorder()
	}

	ledgerService := ledger.NewService(ledger.Deps{
		TxManager: txManager,
		Movements: movementRepo,
		Balances:  stockRepo,
		Variants:  variantRepo,
		Locations: locationRepo,
		Uoms:      uomRepo,
		Resolver:  resolver,
		Numbers:   postgres.NewNumberSource(txManager),
		Journal:   journal,
		Recorder:  recorder,
	})
	stockService := stock.NewService(stockRepo)

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:           pool,
		Logger:         log,
		LedgerService:  ledgerService,
		StockService:   stockService,
		Journal:        journal,
		MetricsEnabled: metricsEnabled,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan struct{})
	if metricsEnabled {
		go metrics.ObservePool(pool, 15*time.Second, done)
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	close(done)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
