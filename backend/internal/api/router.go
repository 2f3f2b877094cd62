package api

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/souvik03-136/emotionclassifier/backend/web"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

// RouteConfig controls how routes are mounted.
type RouteConfig struct {
	ServiceName string
	// StaticDir serves /static from disk instead of the embedded assets.
	StaticDir string
}

// RegisterRoutes sets up middleware and API endpoints
func RegisterRoutes(e *echo.Echo, h *Handler, cfg RouteConfig) {
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(otelecho.Middleware(cfg.ServiceName))
	e.Use(RequestLogger(h.Logger))
	e.Use(MetricsMiddleware(h.Collector))
	e.Use(middleware.Recover())
	e.Use(CORSMiddleware())

	e.GET("/", h.Index)
	e.POST("/classify", h.Classify)
	e.GET("/health", h.Health)
	e.GET("/version", h.Version)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if cfg.StaticDir != "" {
		e.Static("/static", cfg.StaticDir)
	} else {
		e.StaticFS("/static", web.Static())
	}
}
