package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"swift/internal/domain"
	"swift/internal/handler"
	"swift/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	AuthHandler      *handler.AuthHandler
	FareHandler      *handler.FareHandler
	PassengerHandler *handler.PassengerHandler
	DriverHandler    *handler.DriverHandler
	OperatorHandler  *handler.OperatorHandler
	Tokens           middleware.TokenValidator
	Accounts         middleware.AccountLookup
	RedisClient      *redis.Client
	NewRelicApp      *newrelic.Application
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

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/register", deps.AuthHandler.Register)
			authRoutes.POST("/login", deps.AuthHandler.Login)
		}

		v1.GET("/destinations", deps.FareHandler.Destinations)
		v1.GET("/fares", deps.FareHandler.Quote)

		secured := v1.Group("")
		secured.Use(middleware.Auth(deps.Tokens, deps.Accounts))
		secured.Use(middleware.TransactionAttributes())
		secured.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

		// Passenger dashboard.
		passenger := secured.Group("/passenger", middleware.RequireRole(domain.RolePassenger))
		{
			passenger.POST("/bookings", deps.PassengerHandler.BookTrip)
			passenger.GET("/bookings/current", deps.PassengerHandler.CurrentBooking)
			passenger.POST("/bookings/current/cancel", deps.PassengerHandler.CancelBooking)
			passenger.POST("/bookings/current/rating", deps.PassengerHandler.RateTrip)
			passenger.GET("/receipts", deps.PassengerHandler.Receipts)
		}

		// Driver dashboard.
		driver := secured.Group("/driver", middleware.RequireRole(domain.RoleDriver))
		{
			driver.GET("/status", deps.DriverHandler.Status)
			driver.GET("/jobs", deps.DriverHandler.Jobs)
			driver.POST("/jobs/accept", deps.DriverHandler.AcceptJob)
			driver.POST("/trips/current/complete", deps.DriverHandler.CompleteTrip)
			driver.GET("/earnings", deps.DriverHandler.Earnings)
		}

		// Operator dashboard.
		operator := secured.Group("/operator", middleware.RequireRole(domain.RoleOperator))
		{
			operator.GET("/drivers", deps.OperatorHandler.ListDrivers)
			operator.POST("/drivers", deps.OperatorHandler.CreateDriver)
			operator.DELETE("/drivers/:username", deps.OperatorHandler.DeleteDriver)
			operator.GET("/surge", deps.OperatorHandler.GetSurge)
			operator.PUT("/surge", deps.OperatorHandler.SetSurge)
			operator.GET("/reports", deps.OperatorHandler.Report)
			operator.GET("/audit", deps.OperatorHandler.Audit)
		}
	}

	return router
}
