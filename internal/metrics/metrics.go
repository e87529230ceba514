// Package metrics provides the process-wide Prometheus instrumentation for
// txguard: HTTP request metrics, runtime gauges and the /metrics handler.
// Domain packages register their own collectors under the same namespace.
package metrics

import (
	"context"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "txguard",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "txguard",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// BuildInfo is always 1; the version label carries the build.
	BuildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "txguard",
		Name:      "build_info",
		Help:      "Build information.",
	}, []string{"version"})

	// GoroutineCount tracks the current number of goroutines.
	GoroutineCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "txguard", Name: "goroutines",
		Help: "Current number of goroutines.",
	})
	// HeapAllocBytes tracks bytes of allocated heap objects.
	HeapAllocBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "txguard", Name: "heap_alloc_bytes",
		Help: "Bytes of allocated heap objects.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		BuildInfo,
		GoroutineCount,
		HeapAllocBytes,
	)
}

// SetBuildInfo records the running version.
func SetBuildInfo(version string) {
	BuildInfo.WithLabelValues(version).Set(1)
}

// StartRuntimeCollector periodically samples goroutine count and heap size
// into Prometheus gauges. Call in a goroutine; exits when ctx is done.
func StartRuntimeCollector(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	sampleRuntime()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sampleRuntime()
		}
	}
}

func sampleRuntime() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	HeapAllocBytes.Set(float64(ms.HeapAlloc))
	GoroutineCount.Set(float64(runtime.NumGoroutine()))
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(), // route pattern keeps label cardinality bounded
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics HTTP handler for /metrics endpoint.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// statusBucket groups HTTP status codes into buckets (2xx, 3xx, 4xx, 5xx).
func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
