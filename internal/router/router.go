// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/rcastrillon77/photoloft-booking/internal/handler"
)

// Middlewares carries the cross-cutting middleware built in main.
// Identity runs on every /v1 route so even anonymous visitors get a
// stable guest identity before the rate limiter keys on it.  Cache is
// applied per-route, only to the read-only availability endpoints.
type Middlewares struct {
	Identity  echo.MiddlewareFunc
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

// Register mounts every route the booking widget calls.
func Register(e *echo.Echo, av *handler.AvailabilityHandler, hd *handler.HoldHandler, bk *handler.BookingHandler, mw Middlewares) {
	e.GET("/healthz", handler.Health)

	v1 := e.Group("/v1", mw.Identity, mw.RateLimit)

	// availability views; cacheable, identical for every caller
	v1.GET("/listings/:id/availability", av.Day, mw.Cache)
	v1.GET("/listings/:id/availability/max", av.MaxDuration, mw.Cache)
	v1.GET("/listings/:id/availability/next", av.NextDate, mw.Cache)

	// hold lifecycle
	v1.POST("/listings/:id/hold", hd.Create)
	v1.DELETE("/listings/:id/hold", hd.Release)
	v1.GET("/hold", hd.Current)

	// confirmation and reservation management
	v1.POST("/listings/:id/confirm", bk.Confirm)
	v1.GET("/my-bookings", bk.List)
	v1.GET("/bookings/:id", bk.Get)
	v1.DELETE("/bookings/:id", bk.Cancel)
}
