package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-slot-reservation/internal/middleware"
)

// RegisterParking registers /api/parking.  The slot listing is public and
// served through the Redis listing cache; everything else is per user.
func RegisterParking(e *echo.Echo, d Deps) {
	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log)

	e.GET("/api/parking/slots", d.Parking.ListSlots,
		limit, middleware.NewListingCache(d.Cache, d.Redis, d.Generation, d.Log))

	g := e.Group("/api/parking", middleware.JWTAuth(d.JWTSecret), limit)
	g.POST("/book", d.Parking.Book)
	g.GET("/history", d.Parking.History)
	g.GET("/active", d.Parking.Active)
	g.GET("/bookings/:id", d.Parking.Get)
	g.POST("/exit/:id", d.Parking.Exit)
	g.POST("/cancel/:id", d.Parking.Cancel)
}

// RegisterPayment registers /api/payment.
func RegisterPayment(e *echo.Echo, d Deps) {
	g := e.Group("/api/payment",
		middleware.JWTAuth(d.JWTSecret),
		middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log))
	g.POST("/create-order", d.Payment.CreateOrder)
	g.POST("/verify", d.Payment.Verify)
}
