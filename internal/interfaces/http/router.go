// Package http assembles the HTTP server: router, middleware chain, and
// lifecycle.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/logging"
	"github.com/lawrns/flavatix/internal/infrastructure/monitoring/prometheus"
	"github.com/lawrns/flavatix/internal/interfaces/http/handlers"
	"github.com/lawrns/flavatix/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware dependencies for the
// full route tree.  Nil handlers leave their routes unregistered, which
// keeps partial wiring (tests, the worker's debug server) cheap.
type RouterConfig struct {
	TastingHandler    *handlers.TastingHandler
	WheelHandler      *handlers.WheelHandler
	DescriptorHandler *handlers.DescriptorHandler
	HealthHandler     *handlers.HealthHandler

	Logger     logging.Logger
	AppMetrics *prometheus.AppMetrics
	Collector  prometheus.MetricsCollector

	RateLimiter   middleware.RateLimiter
	RateLimit     middleware.RateLimitConfig
	CORS          middleware.CORSConfig
	AccessLog     middleware.AccessLogConfig
	EnableGinMode string
}

// NewRouter constructs the route tree: public health and metrics endpoints,
// and the authenticated /api/v1 group.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.EnableGinMode != "" {
		gin.SetMode(cfg.EnableGinMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.Logger != nil {
		r.Use(middleware.AccessLog(cfg.Logger, cfg.AppMetrics, cfg.AccessLog))
	}
	if cfg.RateLimiter != nil {
		r.Use(middleware.RateLimit(cfg.RateLimiter, cfg.RateLimit))
	}

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.Collector != nil {
		r.GET("/metrics", gin.WrapH(cfg.Collector.Handler()))
	}

	api := r.Group("/api/v1")
	api.Use(middleware.RequireUser())

	if h := cfg.TastingHandler; h != nil {
		tastings := api.Group("/tastings")
		tastings.POST("", h.Create)
		tastings.GET("", h.List)
		tastings.GET("/:tastingID", h.Get)
		tastings.PUT("/:tastingID/notes", h.UpdateNotes)
		tastings.DELETE("/:tastingID", h.Delete)
		tastings.POST("/:tastingID/extract", h.Extract)
	}

	if h := cfg.WheelHandler; h != nil {
		wheels := api.Group("/wheels")
		wheels.POST("/generate", h.Generate)
		wheels.GET("/latest", h.GetLatest)
		wheels.GET("/:wheelID", h.Get)
		wheels.POST("/:wheelID/export", h.Export)
	}

	if h := cfg.DescriptorHandler; h != nil {
		api.GET("/descriptors/search", h.Search)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "COMMON_005",
			"message": "route not found",
		})
	})

	return r
}
