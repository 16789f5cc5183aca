package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewMetrics returns a new set of Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"code", "method", "path"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of latencies for HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"code", "method", "path"},
		),
		SyncRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "directory_sync_runs_total",
				Help: "Total number of directory synchronization runs.",
			},
			[]string{"mode", "result"},
		),
		SyncUsersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "directory_sync_users_total",
				Help: "Users reconciled into the identity store by sync runs.",
			},
			[]string{"outcome"}, // added, updated, failed
		),
		SyncRunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "directory_sync_run_duration_seconds",
				Help:    "Histogram of directory sync run durations.",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
			[]string{"mode"},
		),
	}
	prometheus.MustRegister(m.RequestsTotal)
	prometheus.MustRegister(m.RequestDuration)
	prometheus.MustRegister(m.SyncRunsTotal)
	prometheus.MustRegister(m.SyncUsersTotal)
	prometheus.MustRegister(m.SyncRunDuration)
	return m
}

// Metrics holds the Prometheus metrics.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	SyncRunsTotal   *prometheus.CounterVec
	SyncUsersTotal  *prometheus.CounterVec
	SyncRunDuration *prometheus.HistogramVec
}

// ObserveSyncRun records the outcome of one synchronization run.
func (m *Metrics) ObserveSyncRun(mode string, added, updated, failed int, duration time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.SyncRunsTotal.WithLabelValues(mode, result).Inc()
	m.SyncUsersTotal.WithLabelValues("added").Add(float64(added))
	m.SyncUsersTotal.WithLabelValues("updated").Add(float64(updated))
	m.SyncUsersTotal.WithLabelValues("failed").Add(float64(failed))
	m.SyncRunDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// PrometheusMiddleware returns a Gin middleware that records Prometheus metrics for HTTP requests.
func PrometheusMiddleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next() // Process request

		statusCode := strconv.Itoa(c.Writer.Status())
		path := c.Request.URL.Path
		method := c.Request.Method

		metrics.RequestsTotal.WithLabelValues(statusCode, method, path).Inc()
		metrics.RequestDuration.WithLabelValues(statusCode, method, path).Observe(time.Since(start).Seconds())
	}
}

// PrometheusHandler returns an http.Handler for the Prometheus metrics.
func PrometheusHandler() http.Handler {
	return promhttp.Handler()
}
