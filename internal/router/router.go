package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"

	"github.com/sevasetu/token-queue/internal/config"
	"github.com/sevasetu/token-queue/internal/handler"
	"github.com/sevasetu/token-queue/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Load balancers and monitoring systems probe this endpoint.
	e.GET("/healthz", handler.Health)
}

// RegisterQueue mounts the queue API.  The two polling endpoints are
// public (citizen display boards poll them without credentials) and sit
// behind the short-TTL response cache; every mutation requires an
// officer JWT.  The rate limiter wraps everything, and degrades to a
// pass-through when rdb is nil.
func RegisterQueue(e *echo.Echo, q *handler.QueueHandler, jwtSecret string, rdb *redis.Client) {
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.CacheJSON(config.LoadCacheConfig(), rdb)

	// Public polling surface.
	e.GET("/v1/queue", q.GetLiveQueue, limiter, cache)
	e.GET("/v1/queue/stats", q.GetStats, limiter, cache)

	// Officer console operations.  JWTAuth runs first so the limiter can
	// bucket by authenticated subject.
	officer := e.Group("/v1")
	officer.Use(middleware.JWTAuth(jwtSecret))
	officer.Use(middleware.RequireRole("OFFICER", "ADMIN"))
	officer.Use(limiter)
	officer.POST("/queue/serve-next", q.ServeNext)
	officer.POST("/queue/recall", q.Recall)
	officer.POST("/tokens/:id/serve", q.ServeSpecific)
	officer.POST("/tokens/:id/complete", q.Complete)
	officer.POST("/tokens/:id/skip", q.Skip)
}

// RegisterIntake mounts the booking subsystem's ingestion endpoint.
// The booking service authenticates with a service JWT carrying the
// BOOKING role; ADMIN is accepted for manual corrections.
func RegisterIntake(e *echo.Echo, in *handler.IntakeHandler, jwtSecret string, rdb *redis.Client) {
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	intake := e.Group("/v1")
	intake.Use(middleware.JWTAuth(jwtSecret))
	intake.Use(middleware.RequireRole("BOOKING", "ADMIN"))
	intake.Use(limiter)
	intake.POST("/tokens", in.CreateToken)
}
