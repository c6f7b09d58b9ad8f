package util

import (
	"github.com/gin-gonic/gin"
)

// ContextUserIDKey is the gin context key the auth middleware stores the caller's id under
const ContextUserIDKey = "user_id"

// GetUserIDFromContext extracts the user ID from the Gin context.
// Returns the user ID and true if found, or empty string and false if not authenticated.
// If the user is not authenticated, it automatically responds with 401 Unauthorized.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, exists := c.Get(ContextUserIDKey)
	if !exists {
		RespondUnauthorized(c)
		return "", false
	}
	userIDStr, ok := userID.(string)
	if !ok || userIDStr == "" {
		RespondUnauthorized(c)
		return "", false
	}
	return userIDStr, true
}
