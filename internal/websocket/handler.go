package websocket

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/zfogg/huddle/internal/auth"
	"github.com/zfogg/huddle/internal/logger"
	"github.com/zfogg/huddle/internal/models"
	"github.com/zfogg/huddle/internal/util"
	"go.uber.org/zap"
)

// Authenticator resolves the bearer token presented on upgrade
type Authenticator interface {
	ParseToken(tokenString string) (string, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

// Handler handles WebSocket HTTP upgrade requests
type Handler struct {
	hub            *Hub
	auth           Authenticator
	originPatterns []string
}

// NewHandler creates a new WebSocket handler. originPatterns follows
// websocket.AcceptOptions; a single "*" disables the origin check.
func NewHandler(hub *Hub, authenticator Authenticator, originPatterns []string) *Handler {
	return &Handler{
		hub:            hub,
		auth:           authenticator,
		originPatterns: originPatterns,
	}
}

func (h *Handler) acceptOptions() *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionContextTakeover,
	}
	for _, origin := range h.originPatterns {
		if origin == "*" {
			opts.InsecureSkipVerify = true
			return opts
		}
	}
	opts.OriginPatterns = h.originPatterns
	return opts
}

// HandleWebSocket handles WebSocket upgrade requests.
// Authentication is via ?token=... or "Authorization: Bearer <token>".
func (h *Handler) HandleWebSocket(c *gin.Context) {
	user, err := h.authenticateRequest(c)
	if err != nil {
		logger.Log.Debug("WebSocket auth failed", logger.WithIP(c.ClientIP()), zap.Error(err))
		util.RespondWithError(c, err)
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, h.acceptOptions())
	if err != nil {
		logger.Log.Warn("WebSocket upgrade failed", logger.WithUserID(user.ID), zap.Error(err))
		return
	}

	client := NewClient(h.hub, conn, user.ID, user.Username, user.DisplayName)
	client.RemoteAddr = c.ClientIP()
	client.UserAgent = c.GetHeader("User-Agent")

	h.hub.Register(client)

	_ = client.Send(NewMessage(MessageTypeSystem, SystemPayload{
		Event: "connected",
		Data: map[string]interface{}{
			"user_id":     user.ID,
			"username":    user.Username,
			"server_time": time.Now().UTC().UnixMilli(),
			"session_id":  fmt.Sprintf("%p", client),
		},
	}))

	go client.WritePump()
	client.ReadPump() // blocks until the client disconnects
}

func (h *Handler) authenticateRequest(c *gin.Context) (*models.User, error) {
	token := auth.BearerToken(c)
	if token == "" {
		return nil, auth.ErrInvalidToken
	}

	userID, err := h.auth.ParseToken(token)
	if err != nil {
		return nil, err
	}

	return h.auth.GetUser(c.Request.Context(), userID)
}

// HandleMetrics returns WebSocket metrics plus the caller's own connections
func (h *Handler) HandleMetrics(c *gin.Context) {
	userID, _ := util.GetUserIDFromContext(c)
	c.JSON(http.StatusOK, gin.H{
		"websocket":    h.hub.GetMetrics(),
		"online_users": len(h.hub.GetOnlineUsers()),
		"connections":  h.hub.Connections(userID),
		"timestamp":    time.Now().UTC(),
	})
}

// HandleOnlineStatus checks if specific users are online
func (h *Handler) HandleOnlineStatus(c *gin.Context) {
	var req struct {
		UserIDs []string `json:"user_ids" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "user_ids required")
		return
	}

	statuses := make(map[string]bool, len(req.UserIDs))
	for _, userID := range req.UserIDs {
		statuses[userID] = h.hub.IsUserOnline(userID)
	}

	c.JSON(http.StatusOK, gin.H{
		"statuses":  statuses,
		"timestamp": time.Now().UTC(),
	})
}
