package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"dispatch/internal/handler"
	"dispatch/internal/middleware"
	"dispatch/internal/ws"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler       *handler.RideHandler
	DriverHandler     *handler.DriverHandler
	SettlementHandler *handler.SettlementHandler
	WebhookHandler    *handler.WebhookHandler
	WSGateway         *ws.Gateway
	RedisClient       *redis.Client
	NewRelicApp       *newrelic.Application
	JWTSecret         string
	RateLimitPerSec   float64
	RateLimitBurst    int
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RateLimit(deps.RateLimitPerSec, deps.RateLimitBurst))

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Webhook is signed, not token-authenticated.
	router.POST("/webhooks/disbursement", deps.WebhookHandler.HandleDisbursement)

	// API v1 routes.
	v1 := router.Group("/v1")
	v1.Use(middleware.Auth(deps.JWTSecret))
	v1.Use(middleware.Idempotency(deps.RedisClient))
	{
		// Ride lifecycle routes.
		rides := v1.Group("/rides")
		{
			rides.POST("", middleware.RequireRole("rider"), deps.RideHandler.CreateRide)
			rides.GET("/:id", deps.RideHandler.GetRide)
			rides.GET("/:id/code", middleware.RequireRole("rider"), deps.RideHandler.GetVerificationCode)
			rides.POST("/:id/cancel", deps.RideHandler.CancelRide)
			rides.POST("/:id/reoffer", middleware.RequireRole("admin"), deps.RideHandler.Reoffer)

			rides.POST("/:id/accept", middleware.RequireRole("driver"), deps.DriverHandler.AcceptRide)
			rides.POST("/:id/reject", middleware.RequireRole("driver"), deps.DriverHandler.RejectRide)
			rides.POST("/:id/arrived", middleware.RequireRole("driver"), deps.DriverHandler.MarkArrived)
			rides.POST("/:id/verify", middleware.RequireRole("driver"), deps.DriverHandler.VerifyCode)
			rides.POST("/:id/complete", middleware.RequireRole("driver"), deps.DriverHandler.CompleteRide)

			rides.POST("/:id/waiting/start", middleware.RequireRole("driver"), deps.RideHandler.StartWaiting)
			rides.POST("/:id/waiting/stop", middleware.RequireRole("driver"), deps.RideHandler.StopWaiting)

			rides.GET("/:id/events", deps.WSGateway.RideEvents)
		}

		// Driver presence routes.
		drivers := v1.Group("/drivers")
		drivers.Use(middleware.RequireRole("driver"))
		{
			drivers.POST("/status", deps.DriverHandler.SetStatus)
			drivers.POST("/location", deps.DriverHandler.UpdateLocation)
		}

		// Settlement routes.
		settlement := v1.Group("/settlement")
		settlement.Use(middleware.RequireRole("admin"))
		{
			settlement.GET("/weekly", deps.SettlementHandler.GetWeekly)
			settlement.GET("/payouts", deps.SettlementHandler.ListPayouts)
			settlement.POST("/disburse", deps.SettlementHandler.Disburse)
		}
	}

	return router
}
