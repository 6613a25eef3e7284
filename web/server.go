package web

import (
	"log/slog"
	"net/http"
	"time"

	"carolinalumpers.com/clockin/web/handlers"
	"carolinalumpers.com/clockin/web/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const APIPrefix = "/api/clockin/v1.0"

type RouterOptions struct {
	Service handlers.Service
	// JWTSecret enables device authentication on the API group when set.
	JWTSecret []byte
	Gatherer  prometheus.Gatherer
	Logger    *slog.Logger
}

func NewRouter(opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(opts.Logger))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group(APIPrefix)
	if len(opts.JWTSecret) > 0 {
		api.Use(middlewares.Authentication(opts.JWTSecret))
	}
	handlers.Register(api, opts.Service)

	return r
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", time.Since(start)))
	}
}
