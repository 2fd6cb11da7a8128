// Package router wires the HTTP routes onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/jeanesdev/fundrbolt-platform-sub003/internal/config"
	"github.com/jeanesdev/fundrbolt-platform-sub003/internal/handler"
	"github.com/jeanesdev/fundrbolt-platform-sub003/internal/middleware"
)

// RegisterRoutes registers routes that require no authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterSeating registers the seating API.  Reads are public and sit
// behind the Redis response cache so event dashboards can poll them
// cheaply.  Mutations require an ORGANIZER or ADMIN bearer token and
// are rate limited per user and route.
func RegisterSeating(e *echo.Echo, h *handler.SeatingHandler, jwtSecret string, rdb *redis.Client) {
	cache := middleware.ResponseCache(config.LoadCacheConfig(), rdb)

	reads := e.Group("/v1/events/:id", cache)
	reads.GET("/guests", h.ListGuests)
	reads.GET("/tables", h.ListTables)
	reads.GET("/tables/:table/guests", h.TableGuests)

	writes := e.Group("/v1/events/:id")
	writes.Use(middleware.BearerAuth(jwtSecret))
	writes.Use(middleware.RequireRole("ORGANIZER", "ADMIN"))
	writes.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	writes.POST("/assignments", h.AssignGuest)
	writes.DELETE("/assignments/:guest_id", h.UnassignGuest)
	writes.PATCH("/tables/:table", h.UpdateTable)
	writes.POST("/auto-assign", h.AutoAssign)
}
