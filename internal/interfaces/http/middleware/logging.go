package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/logging"
	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/prometheus"
)

// AccessLogConfig controls the access logging middleware.
type AccessLogConfig struct {
	// SkipPaths are high-frequency paths excluded from logs and metrics.
	SkipPaths []string
	// SlowThreshold marks requests above this duration with a warning.
	SlowThreshold time.Duration
}

// DefaultAccessLogConfig skips health probes and flags requests over 3s.
func DefaultAccessLogConfig() AccessLogConfig {
	return AccessLogConfig{
		SkipPaths:     []string{"/healthz", "/readyz", "/metrics"},
		SlowThreshold: 3 * time.Second,
	}
}

// AccessLog logs every request with its status and latency, and records HTTP
// metrics when a collector is wired.  Metrics may be nil.
func AccessLog(logger logging.Logger, metrics *prometheus.AppMetrics, cfg AccessLogConfig) gin.HandlerFunc {
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		status := c.Writer.Status()
		// FullPath keeps metric label cardinality bounded; raw paths carry
		// user IDs and UUIDs.
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		if metrics != nil {
			metrics.RecordHTTPRequest(c.Request.Method, route, status, duration)
		}

		fields := []logging.Field{
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", status),
			logging.Duration("duration", duration),
			logging.Int("bytes", c.Writer.Size()),
			logging.String("client_ip", c.ClientIP()),
			logging.String("request_id", GetRequestID(c)),
		}
		if userID := GetUserID(c); userID != "" {
			fields = append(fields, logging.String("user_id", userID))
		}

		switch {
		case status >= 500:
			logger.Error("HTTP request completed with server error", fields...)
		case status >= 400:
			logger.Warn("HTTP request completed with client error", fields...)
		case cfg.SlowThreshold > 0 && duration >= cfg.SlowThreshold:
			logger.Warn("HTTP request completed (slow)", fields...)
		default:
			logger.Info("HTTP request completed", fields...)
		}
	}
}
