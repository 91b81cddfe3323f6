package router

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/hospital-api/internal/handler/prometheus"
	"github.com/jwalitptl/hospital-api/internal/middleware"
)

// Handler registers one area of the API. Public routes are reachable
// anonymously; RegisterRoutes receives a group that authenticates callers.
type Handler interface {
	RegisterPublicRoutes(gin.IRoutes)
	RegisterRoutes(gin.IRoutes)
}

type HealthHandler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type RouterConfig struct {
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	AllowedOrigins   []string
	RequestTimeout   time.Duration
	MaxBodySize      int64
	Mode             string
}

type Router struct {
	engine  *gin.Engine
	auth    *middleware.AuthMiddleware
	limiter *middleware.RateLimiter
	health  HealthHandler
	metrics *prometheus.Handler
	areas   []Handler
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	health HealthHandler,
	metrics *prometheus.Handler,
	log zerolog.Logger,
	config RouterConfig,
	areas ...Handler,
) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	middleware.ConfigureBinding()

	engine := gin.New()

	r := &Router{
		engine:  engine,
		auth:    auth,
		health:  health,
		metrics: metrics,
		areas:   areas,
	}
	if config.RateLimitEnabled {
		r.limiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
	}
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = middleware.DefaultMaxBodySize
	}

	// Add core middlewares
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(log),
		middleware.Recovery(),
		metrics.Middleware(),
		middleware.ErrorHandler(),
		middleware.Timeout(config.RequestTimeout),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.SizeLimit(config.MaxBodySize),
	)
	engine.Use(cors.New(corsConfig(config.AllowedOrigins)))

	r.setup()
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderXRequestID},
		ExposeHeaders: []string{"Content-Length", middleware.HeaderXRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func (r *Router) setup() {
	r.engine.GET("/metrics", r.metrics.Handler())

	api := r.engine.Group("/api/v1")
	r.health.RegisterRoutes(api)
	r.mount(api)

	// the scheduling endpoints are also served at their unversioned paths
	r.mount(r.engine.Group(""))
}

func (r *Router) mount(rg *gin.RouterGroup) {
	for _, h := range r.areas {
		h.RegisterPublicRoutes(rg)
	}

	protected := rg.Group("")
	protected.Use(r.auth.Authenticate())
	if r.limiter != nil {
		protected.Use(r.limiter.RateLimit())
	}
	for _, h := range r.areas {
		h.RegisterRoutes(protected)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.engine.ServeHTTP(w, req)
}
