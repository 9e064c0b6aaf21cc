package v1

import (
	"github.com/gin-gonic/gin"

	"veilchat-server/chat-api/internal/interfaces/httpserver/handlers"
)

// Routes encapsulates versioned route registration.
type Routes struct {
	handlers *handlers.Provider
}

func NewRoutes(provider *handlers.Provider) *Routes {
	return &Routes{handlers: provider}
}

// Register attaches all v1 routes under /v1 prefix.
func (r *Routes) Register(router gin.IRouter) {
	group := router.Group("/v1")

	group.POST("/conversations", r.handlers.Conversation.Create)
	group.GET("/conversations", r.handlers.Conversation.List)
	group.GET("/conversations/:id", r.handlers.Conversation.Get)
	group.GET("/conversations/:id/messages", r.handlers.Conversation.Messages)
	group.POST("/conversations/:id/messages", r.handlers.Conversation.Append)
	group.POST("/conversations/:id/read", r.handlers.Conversation.MarkRead)

	group.POST("/messages/seal", r.handlers.Message.Seal)
	group.POST("/messages/open", r.handlers.Message.Open)
}
