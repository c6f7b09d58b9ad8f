package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/huddle/internal/util"
)

// GetChatMessages returns the room's 50 most recent messages, oldest first
func (h *Handlers) GetChatMessages(c *gin.Context) {
	messages, err := h.chat.Recent(c.Request.Context(), c.Param("room"))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// SendChatMessage stores a message and relays it to the room
func (h *Handlers) SendChatMessage(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	msg, err := h.chat.Send(c.Request.Context(), userID, c.Param("room"), bindContent(c))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// MarkChatRead marks the room's messages from others read
func (h *Handlers) MarkChatRead(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	n, err := h.chat.MarkRead(c.Request.Context(), userID, c.Param("room"))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
