package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/huddle/internal/util"
)

// BearerToken pulls the token from "Authorization: Bearer <token>" or,
// for websocket upgrades that can't set headers, the token query parameter.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.Query("token")
}

// Middleware rejects requests without a valid bearer token and stores the
// caller's id under util.ContextUserIDKey.
func Middleware(tokens ServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			util.RespondUnauthorized(c)
			c.Abort()
			return
		}

		userID, err := tokens.ParseToken(token)
		if err != nil {
			util.RespondWithError(c, err)
			c.Abort()
			return
		}

		c.Set(util.ContextUserIDKey, userID)
		c.Next()
	}
}
