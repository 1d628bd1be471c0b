// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"mise/internal/domain/ledger"
	"mise/internal/domain/stock"
	"mise/internal/infrastructure/http/v1/handlers"
	"mise/internal/infrastructure/http/v1/middleware"
	"mise/internal/infrastructure/metrics"
	"mise/internal/infrastructure/storage/postgres"
	"mise/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks)
	Pool *postgres.Pool

	// Logger for request logging
	Logger *logger.Logger

	// LedgerService posts and queries movements
	LedgerService *ledger.Service

	// StockService answers balance queries
	StockService *stock.Service

	// Journal serves movement audit history
	Journal *postgres.MovementJournal

	// MetricsEnabled exposes /metrics and records per-route counters
	MetricsEnabled bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	if cfg.MetricsEnabled {
		router.Use(metrics.HTTPMiddleware())
	}

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	if cfg.MetricsEnabled {
		router.GET("/metrics", metrics.Handler())
	}

	// API v1
	apiV1 := router.Group("/api/v1")
	apiV1.Use(middleware.UserContext())
	{
		baseHandler := handlers.NewBaseHandler()

		ledgerHandler := handlers.NewLedgerHandler(baseHandler, cfg.LedgerService, cfg.Journal)
		ledgerHandler.RegisterRoutes(apiV1.Group("/ledger"))

		stockHandler := handlers.NewStockHandler(baseHandler, cfg.StockService)
		stockGroup := apiV1.Group("/stock")
		stockHandler.RegisterRoutes(stockGroup)
		// Movement history reads naturally off the stock surface too.
		stockGroup.GET("/movements", ledgerHandler.List)
	}

	return router
}
