package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/huddle/internal/dto"
	"github.com/zfogg/huddle/internal/util"
)

// Register creates an account and returns a session
func (h *AuthHandlers) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "Invalid registration details")
		return
	}

	resp, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// Login checks credentials and returns a session
func (h *AuthHandlers) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "Login and password required")
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Me returns the authenticated user
func (h *AuthHandlers) Me(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	user, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDetailResponse(user))
}
