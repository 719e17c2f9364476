package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"rental/internal/handler"
	"rental/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	TripHandler *handler.TripHandler
	RedisClient *redis.Client
	NewRelicApp *newrelic.Application
	JWTSecret   string
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes. Everything under /v1 requires a valid bearer token.
	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(deps.JWTSecret))
	v1.Use(middleware.IdempotencyMiddleware(deps.RedisClient))
	{
		trips := v1.Group("/trips")
		{
			trips.POST("/start", deps.TripHandler.StartTrip)
			trips.GET("/active", deps.TripHandler.GetActiveTrip)
			trips.GET("/my-trips", deps.TripHandler.GetMyTrips)
			trips.GET("/billing-pending", middleware.RequireAdmin(), deps.TripHandler.GetBillingPending)
			trips.GET("/:id", deps.TripHandler.GetTrip)
			trips.POST("/:id/end", deps.TripHandler.EndTrip)
			trips.POST("/:id/cancel", deps.TripHandler.CancelTrip)
			trips.POST("/:id/rate", deps.TripHandler.RateTrip)
			trips.POST("/:id/locations", deps.TripHandler.AddLocation)
			trips.GET("/:id/locations", deps.TripHandler.GetLocations)
			trips.GET("/:id/position", deps.TripHandler.GetLivePosition)
		}
	}

	return router
}
