package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/patient-directory/internal/handler"
	promhandler "github.com/jwalitptl/patient-directory/internal/handler/prometheus"
	"github.com/jwalitptl/patient-directory/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	engine  *gin.Engine
	config  RouterConfig
	h       *handler.Handler
	routes  []Handler
	metrics *promhandler.Handler
}

type RouterConfig struct {
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	CORSConfig       middleware.CORSConfig
	MaxBodySize      int64
	// MetricsNamespace prefixes the HTTP metrics. Metrics are registered on
	// Registerer and exposed on /metrics only when ExposeMetrics is set.
	MetricsNamespace string
	Registerer       prometheus.Registerer
	ExposeMetrics    bool
	Logger           zerolog.Logger
}

func NewRouter(h *handler.Handler, config RouterConfig, routes ...Handler) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()

	r := &Router{
		engine: engine,
		config: config,
		h:      h,
		routes: routes,
	}
	if config.Registerer != nil {
		r.metrics = promhandler.New(config.MetricsNamespace, config.Registerer)
	}

	engine.Use(
		middleware.Trace(),
		middleware.Recovery(config.Logger),
		middleware.Logger(config.Logger),
	)
	if r.metrics != nil {
		engine.Use(r.metrics.Middleware())
	}
	engine.Use(
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.CORS(config.CORSConfig),
	)

	if config.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(limiter.RateLimit())
	}

	sizeLimit := middleware.DefaultSizeLimitConfig()
	if config.MaxBodySize > 0 {
		sizeLimit.MaxBodySize = config.MaxBodySize
	}
	engine.Use(
		middleware.SizeLimit(sizeLimit),
		middleware.ErrorHandler(config.Logger),
	)

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.setupHealthCheck(api)

	for _, h := range r.routes {
		h.RegisterRoutes(api)
	}
}

func (r *Router) setupHealthCheck(rg *gin.RouterGroup) {
	health := rg.Group("/health")
	{
		health.GET("/live", r.h.LivenessCheck)
		health.GET("/ready", r.h.ReadinessCheck)
	}
	if r.config.ExposeMetrics {
		rg.GET("/metrics", r.h.MetricsHandler)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
