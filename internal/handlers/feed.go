package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/huddle/internal/dto"
	"github.com/zfogg/huddle/internal/repository"
	"github.com/zfogg/huddle/internal/social"
	"github.com/zfogg/huddle/internal/util"
)

// GetPosts lists posts.
// GET /api/v1/posts?user=<id>&sort=latest|recommended&page=&limit=
func (h *Handlers) GetPosts(c *gin.Context) {
	page, limit := util.ParsePagination(c.Query("page"), c.Query("limit"))

	posts, err := h.social.ListPosts(c.Request.Context(), social.FeedQuery{
		AuthorID: c.Query("user"),
		Sort:     repository.ParseFeedSort(c.Query("sort")),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		util.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts": posts,
		"meta": gin.H{
			"page":  page,
			"limit": limit,
			"count": len(posts),
		},
	})
}

// GetPost returns one post with its thread
func (h *Handlers) GetPost(c *gin.Context) {
	post, err := h.social.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// CreatePost publishes a new post
func (h *Handlers) CreatePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req dto.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "Invalid request body")
		return
	}

	post, err := h.social.CreatePost(c.Request.Context(), userID, req)
	if err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// DeletePost deletes one of the caller's posts
func (h *Handlers) DeletePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	if err := h.social.DeletePost(c.Request.Context(), userID, c.Param("id")); err != nil {
		util.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
