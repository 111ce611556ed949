package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rentalhub/internal/authz"
	"rentalhub/internal/handlers"
	"rentalhub/internal/middleware"
	"rentalhub/internal/services"
)

func SetupRoutes(
	r *gin.Engine,
	authService services.AuthService,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	chatHandler *handlers.ChatHandler,
	wsHandler *handlers.WSHandler,
) *gin.Engine {

	// ---- public
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.POST("/login", authHandler.Login)
	r.POST("/refresh", authHandler.RefreshToken)
	r.POST("/register", authHandler.Register)

	// websocket authenticates the upgrade itself (header or ?token=)
	r.GET("/ws", wsHandler.Serve)

	// ---- protected
	r.Use(middleware.AuthMiddleware(authService))

	// USERS
	users := r.Group("/users")
	{
		users.GET("/me", userHandler.Me)
		users.PUT("/me/push-token", userHandler.UpdatePushToken)
		users.GET("/online", userHandler.OnlineUsers)
	}

	// CHATS
	chats := r.Group("/chats")
	{
		chats.GET("", chatHandler.ListChats)
		chats.POST("/initiate", chatHandler.Initiate)
		chats.GET("/:id/messages", chatHandler.ListMessages)
		chats.POST("/:id/messages", chatHandler.SendMessage)
	}

	// ADMIN
	admin := r.Group("/admin", middleware.RequireRoles(authz.RoleAdmin))
	{
		admin.GET("/presence", userHandler.AdminPresence)
	}

	return r
}
