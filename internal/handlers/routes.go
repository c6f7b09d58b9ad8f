package handlers

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the API under api. authLimit guards the public
// register and login endpoints; pass nil to leave them unlimited.
func RegisterRoutes(api *gin.RouterGroup, h *Handlers, authHandlers *AuthHandlers, authLimit gin.HandlerFunc) {
	requireAuth := authHandlers.AuthMiddleware()

	// Authentication routes (public)
	authGroup := api.Group("/auth")
	{
		if authLimit != nil {
			authGroup.POST("/register", authLimit, authHandlers.Register)
			authGroup.POST("/login", authLimit, authHandlers.Login)
		} else {
			authGroup.POST("/register", authHandlers.Register)
			authGroup.POST("/login", authHandlers.Login)
		}
		authGroup.GET("/me", requireAuth, authHandlers.Me)
	}

	// Post routes
	posts := api.Group("/posts")
	{
		posts.Use(requireAuth)
		posts.GET("", h.GetPosts)
		posts.POST("", h.CreatePost)
		posts.GET("/:id", h.GetPost)
		posts.DELETE("/:id", h.DeletePost)
		posts.POST("/:id/like", h.LikePost)
		posts.DELETE("/:id/like", h.UnlikePost)
		posts.POST("/:id/comment", h.CreateComment)
		posts.POST("/:id/comment/:commentId/reply", h.CreateReply)
		posts.POST("/:id/share", h.SharePost)
	}

	// User routes
	users := api.Group("/users")
	{
		users.Use(requireAuth)
		users.GET("/:id", h.GetUserProfile)
		users.GET("/:id/followers", h.GetUserFollowers)
		users.GET("/:id/following", h.GetUserFollowing)
		users.POST("/:id/follow", h.FollowUserByID)
		users.DELETE("/:id/follow", h.UnfollowUserByID)
	}

	// Notification routes
	notifications := api.Group("/notifications")
	{
		notifications.Use(requireAuth)
		notifications.GET("", h.GetNotifications)
		notifications.GET("/unread-count", h.GetUnreadCount)
		notifications.POST("/read-all", h.MarkAllNotificationsRead)
		notifications.POST("/:id/read", h.MarkNotificationRead)
	}

	// Chat routes
	chat := api.Group("/chat")
	{
		chat.Use(requireAuth)
		chat.GET("/:room", h.GetChatMessages)
		chat.POST("/:room", h.SendChatMessage)
		chat.POST("/:room/read", h.MarkChatRead)
	}

	// WebSocket routes - the upgrade authenticates via ?token=... or Authorization header
	if h.wsHandler != nil {
		ws := api.Group("/ws")
		{
			ws.GET("", h.wsHandler.HandleWebSocket)
			ws.GET("/metrics", requireAuth, h.wsHandler.HandleMetrics)
			ws.POST("/online", requireAuth, h.wsHandler.HandleOnlineStatus)
		}
	}
}
