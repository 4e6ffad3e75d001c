package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"fleet-analytics-service/internal/http/middleware"
	"fleet-analytics-service/internal/metrics"
)

type RouterOptions struct {
	Environment        string
	AllowedOrigins     []string
	RateLimitPerMinute int
	Metrics            *metrics.Manager
	Logger             zerolog.Logger
}

// NewRouter wires the global middleware, the unauthenticated probes and
// the handler's routes.
func NewRouter(handler *Handler, authMiddleware gin.HandlerFunc, opts RouterOptions) *gin.Engine {
	if strings.EqualFold(opts.Environment, "production") {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Observe(opts.Logger, opts.Metrics))
	r.Use(cors.New(corsConfig(opts.AllowedOrigins)))
	r.Use(middleware.RateLimit(middleware.NewClientLimiter(opts.RateLimitPerMinute)))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	handler.Register(r, authMiddleware)
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
