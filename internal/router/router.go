package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/meeting-room-reservation/internal/handler"    // import the handlers that translate HTTP to service calls
	"github.com/iliyamo/meeting-room-reservation/internal/middleware" // import middleware for JWT authentication and service keys
	"github.com/iliyamo/meeting-room-reservation/internal/model"
)

var userRoles = []model.Role{
	model.RoleRegularUser,
	model.RoleFacilityManager,
	model.RoleAdmin,
	model.RoleAuditor,
	model.RoleModerator,
}

// Options carries the settings the route groups need.
type Options struct {
	JWTSecret      string              // verifies bearer tokens
	ServiceKeyHash string              // bcrypt hash of the internal service key; empty disables it
	RateLimit      echo.MiddlewareFunc // token bucket applied after authentication; may be nil
}

// RegisterRoutes registers routes that do not require authentication:
// the health check and the Prometheus scrape endpoint.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterReservations registers the reservation API under /v1.  Every
// route requires a bearer token except the room read endpoints, which
// internal services may also call with the X-Service-Key header.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, opts Options) {
	limit := opts.RateLimit
	if limit == nil {
		limit = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	// Reservations and per-user listings are only reachable with a
	// user token; service accounts are limited to room reads.  The rate limiter runs after auth so user-based keys
	// see the caller.
	auth := e.Group("/v1", middleware.JWTAuth(opts.JWTSecret), middleware.RequireRole(userRoles...), limit)
	auth.POST("/reservations", h.Create)
	auth.GET("/reservations", h.List)
	auth.GET("/reservations/:id", h.Get)
	auth.PATCH("/reservations/:id", h.Update)
	auth.DELETE("/reservations/:id", h.Cancel)
	auth.GET("/reservations/:id/history", h.History)
	auth.GET("/users/:id/reservations", h.ListForUser)

	// Room reads answer to users and to service accounts.
	rooms := e.Group("/v1/rooms", middleware.ServiceKeyOrJWT(opts.ServiceKeyHash, opts.JWTSecret), limit)
	rooms.GET("/:id/availability", h.Availability)
	rooms.GET("/:id/schedule", h.Schedule)
}
