package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/studio-api/internal/handler/health"
	"github.com/jwalitptl/studio-api/internal/middleware"
)

// Handler mounts a route group.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// TriggerHandler needs the callback-auth middleware alongside the group.
type TriggerHandler interface {
	RegisterRoutes(*gin.RouterGroup, gin.HandlerFunc)
}

type Config struct {
	RateLimit     rate.Limit
	RateBurst     int
	Timeout       time.Duration
	TriggerSecret string
}

type Router struct {
	engine *gin.Engine
}

func New(
	cfg Config,
	healthH *health.Handler,
	reminderH TriggerHandler,
	handlers ...Handler,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 50
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 100
	}

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  cfg.RateLimit,
		Burst: cfg.RateBurst,
	})

	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		middleware.Metrics(),
		middleware.Timeout(middleware.TimeoutConfig{Duration: cfg.Timeout}),
		rateLimiter.RateLimit(),
	)

	healthH.RegisterRoutes(engine)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api/v1")
	for _, h := range handlers {
		h.RegisterRoutes(api)
	}
	reminderH.RegisterRoutes(api, middleware.TriggerAuth(cfg.TriggerSecret))

	return &Router{engine: engine}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
