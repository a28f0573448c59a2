package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// UserIDHeader carries the caller's identity.  The gateway in front of
	// this service authenticates the user and injects the header; the
	// service itself does not verify tokens.
	UserIDHeader = "X-User-ID"

	userIDKey = "user_id"
)

// RequireUser rejects requests without an X-User-ID header and stores the
// identity on the context for handlers.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(UserIDHeader)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "COMMON_003",
				"message": "missing " + UserIDHeader + " header",
			})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// GetUserID returns the authenticated user ID, or "" outside RequireUser.
func GetUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
