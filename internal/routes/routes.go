package routes

import (
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"tradehub/internal/handlers"
	"tradehub/internal/middleware"
)

// SetupRouter initializes and returns the Gin router with all routes configured
func SetupRouter() *gin.Engine {
	r := gin.Default()

	// Add health check endpoint
	r.Any("/health", func(c *gin.Context) {
		c.String(200, "ok")
	})

	// Configure CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Allowed origins come from env as a comma-separated list,
		// e.g. "http://localhost:3000,https://tradehub.app"
		allowedOriginsStr := os.Getenv("ALLOWED_ORIGINS")
		var allowedOrigins []string

		if allowedOriginsStr != "" {
			origins := strings.Split(allowedOriginsStr, ",")
			for _, o := range origins {
				trimmed := strings.TrimSpace(o)
				if trimmed != "" {
					allowedOrigins = append(allowedOrigins, trimmed)
				}
			}
		}

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin {
				allowed = true
				break
			}
		}

		if allowed {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	r.Use(middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: 20,
		Burst:             40,
	}))

	// Arena routes
	r.GET("/arenas", handlers.ListArenas)
	r.POST("/arenas", handlers.CreateArena)
	r.GET("/arenas/:id", handlers.GetArena)
	r.PATCH("/arenas/:id/distribution-status", handlers.UpdateDistributionStatus)

	// Participant routes
	r.GET("/arenas/:id/participants", handlers.ListParticipants)
	r.POST("/arenas/:id/participants", handlers.RegisterParticipant)

	// Leaderboard routes
	r.GET("/arenas/:id/leaderboard", handlers.GetLeaderboard)
	r.POST("/arenas/:id/resync", handlers.TriggerResync)

	// Deposit log routes
	r.GET("/participants/:id/deposit-logs", handlers.ListDepositLogs)
	r.POST("/deposit-logs", handlers.CreateDepositLog)

	// RPC config routes
	r.GET("/rpc-configs", handlers.ListRpcConfigs)
	r.POST("/rpc-configs", handlers.CreateRpcConfig)
	r.PUT("/rpc-configs/:id", handlers.UpdateRpcConfig)
	r.DELETE("/rpc-configs/:id", handlers.DeleteRpcConfig)
	r.GET("/rpc-configs/check", handlers.CheckRpcEndpoints)

	return r
}
