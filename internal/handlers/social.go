package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/huddle/internal/dto"
	"github.com/zfogg/huddle/internal/util"
)

// bindContent reads an optional {"content": "..."} body. A missing or
// malformed body reads as empty content and is left to the service to reject.
func bindContent(c *gin.Context) string {
	var req dto.ContentRequest
	_ = c.ShouldBindJSON(&req)
	return req.Content
}

// LikePost adds the caller to a post's likes
func (h *Handlers) LikePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	resp, err := h.social.Like(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UnlikePost removes the caller's like
func (h *Handlers) UnlikePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	resp, err := h.social.Unlike(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CreateComment comments on a post and returns all of its comments
func (h *Handlers) CreateComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	comments, err := h.social.Comment(c.Request.Context(), userID, c.Param("id"), bindContent(c))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// CreateReply replies to a comment and returns the comment's replies
func (h *Handlers) CreateReply(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	replies, err := h.social.Reply(c.Request.Context(), userID, c.Param("id"), c.Param("commentId"), bindContent(c))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"replies": replies})
}

// SharePost reposts a post to the caller's followers and the live feed
func (h *Handlers) SharePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	resp, err := h.social.Share(c.Request.Context(), userID, c.Param("id"), bindContent(c))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// FollowUserByID follows the user in the path
func (h *Handlers) FollowUserByID(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	resp, err := h.social.Follow(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UnfollowUserByID unfollows the user in the path
func (h *Handlers) UnfollowUserByID(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	resp, err := h.social.Unfollow(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetUserProfile returns a user's profile with follow counts
func (h *Handlers) GetUserProfile(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	profile, err := h.social.GetProfile(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// GetUserFollowers lists a user's followers
func (h *Handlers) GetUserFollowers(c *gin.Context) {
	page, limit := util.ParsePagination(c.Query("page"), c.Query("limit"))

	users, err := h.social.GetFollowers(c.Request.Context(), c.Param("id"), page, limit)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// GetUserFollowing lists who a user follows
func (h *Handlers) GetUserFollowing(c *gin.Context) {
	page, limit := util.ParsePagination(c.Query("page"), c.Query("limit"))

	users, err := h.social.GetFollowing(c.Request.Context(), c.Param("id"), page, limit)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}
