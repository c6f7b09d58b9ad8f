package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/zfogg/huddle/internal/auth"
	"github.com/zfogg/huddle/internal/chat"
	"github.com/zfogg/huddle/internal/social"
	"github.com/zfogg/huddle/internal/websocket"
)

// Handlers contains the HTTP handlers for posts, interactions,
// notifications and chat
type Handlers struct {
	social    *social.Service
	chat      *chat.Service
	wsHandler *websocket.Handler
}

// NewHandlers creates a new handlers instance
func NewHandlers(socialService *social.Service, chatService *chat.Service) *Handlers {
	return &Handlers{
		social: socialService,
		chat:   chatService,
	}
}

// SetWebSocketHandler sets the relay endpoint served under /ws
func (h *Handlers) SetWebSocketHandler(ws *websocket.Handler) {
	h.wsHandler = ws
}

// AuthHandlers serves register, login and the current-user endpoint
type AuthHandlers struct {
	authService auth.ServiceInterface
}

// NewAuthHandlers creates auth handlers
func NewAuthHandlers(authService auth.ServiceInterface) *AuthHandlers {
	return &AuthHandlers{authService: authService}
}

// AuthMiddleware validates bearer tokens
func (h *AuthHandlers) AuthMiddleware() gin.HandlerFunc {
	return auth.Middleware(h.authService)
}
