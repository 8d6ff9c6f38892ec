package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/purplefish/interviewchat/config"
	"github.com/purplefish/interviewchat/internal/api/handlers"
	"github.com/purplefish/interviewchat/internal/api/middleware"
)

type Deps struct {
	Chat         *handlers.ChatHandler
	Conversation *handlers.ConversationHandler
	WS           *handlers.WSHandler

	Auth        config.AuthConfig
	Limiter     config.RateLimiterConfig
	VoiceRoutes bool
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.HandleMethodNotAllowed = true
	r.NoMethod(handlers.MethodNotAllowed)
	r.NoRoute(handlers.NotFound)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	limited := r.Group("/chat", middleware.RateLimit(d.Limiter))
	limited.POST("", d.Chat.Chat)
	if d.VoiceRoutes {
		limited.POST("/voice", d.Chat.Voice)
	}

	conv := r.Group("/conversations")
	conv.GET("", d.Conversation.List)
	conv.GET("/:id", d.Conversation.Get)
	conv.PATCH("/:id", d.Conversation.Rename)
	conv.DELETE("/:id", d.Conversation.Delete)
	conv.GET("/:id/turns", d.Conversation.Turns)

	admin := r.Group("/conversations", middleware.RequireAdmin(d.Auth)...)
	admin.DELETE("", d.Conversation.DeleteAll)
	admin.POST("/:id/terminate", d.Conversation.Terminate)

	r.GET("/ws/conversations/:id", d.WS.ConversationWS)
}
