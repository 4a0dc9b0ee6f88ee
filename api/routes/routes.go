package routes

import (
	"github.com/CivicLink/civiclink-backend/internal/config"
	"github.com/CivicLink/civiclink-backend/internal/handlers"
	"github.com/CivicLink/civiclink-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// HandlerDependencies holds the handlers needed by the router
type HandlerDependencies struct {
	AuthHandler         *handlers.AuthHandler
	UserHandler         *handlers.UserHandler
	CredentialHandler   *handlers.CredentialHandler
	NotificationHandler *handlers.NotificationHandler
	PointsHandler       *handlers.PointsHandler
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, deps *HandlerDependencies) *gin.Engine {
	router := gin.Default()

	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware())

	// Public routes
	public := router.Group("/api/v1")
	{
		public.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{"status": "ok"})
		})

		auth := public.Group("/auth")
		{
			auth.POST("/register", deps.AuthHandler.Register)
			auth.POST("/login", deps.AuthHandler.Login)
		}

		// Scanner devices validate credentials without an account
		public.POST("/credentials/validate", deps.CredentialHandler.Validate)
	}

	// Protected routes
	protected := router.Group("/api/v1")
	protected.Use(middleware.JWTAuthMiddleware(cfg))
	{
		users := protected.Group("/users")
		{
			users.GET("/me", deps.UserHandler.GetMe)
			users.PUT("/me", deps.UserHandler.UpdateProfile)
			users.PUT("/me/push-token", deps.UserHandler.RegisterPushToken)
			users.DELETE("/me/push-token", deps.UserHandler.RemovePushTokens)
			users.GET("/me/notifications", deps.UserHandler.GetInbox)
			users.PATCH("/me/notifications/:id/read", deps.UserHandler.MarkInboxRead)
			users.GET("/me/points/ledger", deps.UserHandler.GetMyLedger)
		}

		credentials := protected.Group("/credentials")
		{
			credentials.POST("", deps.CredentialHandler.Generate)
			credentials.GET("/current", deps.CredentialHandler.GetCurrent)
			credentials.DELETE("/current", deps.CredentialHandler.Invalidate)
			credentials.GET("/history", deps.CredentialHandler.GetHistory)
		}
	}

	// Admin routes
	admin := router.Group("/api/v1/admin")
	admin.Use(middleware.JWTAuthMiddleware(cfg))
	admin.Use(middleware.AdminRequired())
	{
		adminUsers := admin.Group("/users")
		{
			adminUsers.GET("", deps.UserHandler.ListUsers)
			adminUsers.GET("/:id", deps.UserHandler.GetUserByID)
			adminUsers.DELETE("/:id", deps.UserHandler.DeleteUser)
		}

		notifications := admin.Group("/notifications")
		{
			notifications.GET("", deps.NotificationHandler.ListByStatus)
			notifications.GET("/:id", deps.NotificationHandler.GetByID)
			notifications.POST("", deps.NotificationHandler.Create)
			notifications.PATCH("/:id/status", deps.NotificationHandler.UpdateStatus)
			notifications.POST("/broadcast", deps.NotificationHandler.Broadcast)
		}

		points := admin.Group("/points")
		{
			points.POST("/edit", deps.PointsHandler.EditUserPoints)
			points.POST("/reset", deps.PointsHandler.ResetMonthlyPoints)
			points.GET("/ledger/:userId", deps.PointsHandler.GetUserLedger)
		}
	}

	return router
}
