// Package router registers the HTTP routes of the parking API on an Echo
// instance.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/parking-slot-reservation/internal/config"
	"github.com/iliyamo/parking-slot-reservation/internal/handler"
	"github.com/iliyamo/parking-slot-reservation/internal/metrics"
	"github.com/iliyamo/parking-slot-reservation/internal/middleware"
)

// Deps is everything the routes need.  Redis, the listing generation and
// Metrics are optional; without them caching, rate limiting and /metrics
// are simply not installed.
type Deps struct {
	JWTSecret  string
	DB         handler.Pinger
	Auth       *handler.AuthHandler
	Parking    *handler.ParkingHandler
	Payment    *handler.PaymentHandler
	Redis      *redis.Client
	Generation *middleware.ListingGeneration
	Cache      config.CacheConfig
	RateLimit  config.RateLimitConfig
	Metrics    *metrics.Metrics
	Log        logrus.FieldLogger
}

// Register installs the global middleware and every route.
func Register(e *echo.Echo, d Deps) {
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLogger(d.Log, d.Metrics))

	RegisterRoutes(e, d)
	RegisterAuth(e, d)
	RegisterParking(e, d)
	RegisterPayment(e, d)
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/api/health", handler.Health(d.DB))
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{})))
	}
	e.RouteNotFound("/api/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "route not found"})
	})
}

// RegisterAuth registers /api/auth.  register, login and refresh issue
// tokens; logout and me need a valid access token.
func RegisterAuth(e *echo.Echo, d Deps) {
	g := e.Group("/api/auth", middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log))
	g.POST("/register", d.Auth.Register)
	g.POST("/login", d.Auth.Login)
	g.POST("/refresh", d.Auth.Refresh)

	jwt := middleware.JWTAuth(d.JWTSecret)
	g.POST("/logout", d.Auth.Logout, jwt)
	g.GET("/me", d.Auth.Me, jwt)
}
