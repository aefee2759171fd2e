// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file exposes Prometheus instrumentation for HTTP traffic. Labels are
// bounded: method, the registered route (raw path only when nothing
// matched, collapsed to "unmatched") and the status code.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// httpReqs counts requests by method, route path, and status code.
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agent",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status.",
		},
		[]string{"method", "path", "status"},
	)

	// httpLat records request duration in seconds by method and route path.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "agent",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 8},
		},
		[]string{"method", "path"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "agent",
			Subsystem: "http",
			Name:      "requests_inflight",
			Help:      "Requests currently being served.",
		},
	)

	// httpRespSize captures response sizes; JSON payloads here are small.
	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "agent",
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "Response body size.",
			Buckets:   prometheus.ExponentialBuckets(128, 4, 8), // 128B..2MiB
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize)
}

// Metrics instruments requests. Paths listed in skip (e.g. the scrape
// endpoint itself) are passed through untouched. Websocket upgrades are
// counted once, when the handshake handler returns.
func Metrics(skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skipped[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		status := c.Writer.Status()

		httpReqs.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		// Hijacked connections report no size.
		if size := c.Writer.Size(); size >= 0 && status != http.StatusSwitchingProtocols {
			httpRespSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}
