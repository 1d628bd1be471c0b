// Package metrics exposes Prometheus instrumentation for the ledger and the
// HTTP surface.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mise/internal/domain/ledger"
	"mise/internal/infrastructure/storage/postgres"
)

var (
	movementsPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mise_movements_posted_total",
			Help: "Posted stock movements by reason",
		},
		[]string{"reason"},
	)

	stockOutRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mise_stock_out_rejected_total",
			Help: "Rejected stock-out attempts by error code",
		},
		[]string{"code"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mise_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mise_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	poolAcquired = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mise_db_pool_acquired_conns",
			Help: "Connections currently acquired from the pool",
		},
	)

	poolTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mise_db_pool_total_conns",
			Help: "Total connections held by the pool",
		},
	)
)

// Recorder implements ledger.Recorder on Prometheus counters.
type Recorder struct{}

// NewRecorder creates a new ledger metrics recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

var _ ledger.Recorder = (*Recorder)(nil)

func (*Recorder) MovementPosted(reason ledger.Reason) {
	movementsPosted.WithLabelValues(string(reason)).Inc()
}

func (*Recorder) StockOutRejected(code string) {
	stockOutRejected.WithLabelValues(code).Inc()
}

// HTTPMiddleware records request counts and latencies per route.
func HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path, status).
			Observe(time.Since(start).Seconds())
	}
}

// Handler serves the Prometheus scrape endpoint.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// ObservePool publishes pool stats every interval until ctx is done.
// Run it as a goroutine next to the server.
func ObservePool(pool *postgres.Pool, interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			stats := postgres.GetPoolStats(pool.Unwrap())
			poolAcquired.Set(float64(stats.AcquiredConns))
			poolTotal.Set(float64(stats.TotalConns))
		}
	}
}
