package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"basegraph.app/chat/common/logger"
	"github.com/gin-gonic/gin"
)

const userIDKey = "user_id"

// TokenValidator resolves a bearer token to the user it was issued to.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

// UserID returns the user resolved by Bearer, if any.
func UserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// Bearer resolves the Authorization header to a user id. When required is
// false, requests without a token pass through anonymously; a token that is
// present but invalid is always rejected.
func Bearer(tokens TokenValidator, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
				return
			}
			c.Next()
			return
		}

		userID, err := tokens.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(userIDKey, userID)
		ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{UserID: &userID})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAdminAPIKey guards the seeding endpoints. An unset key disables
// them entirely.
func RequireAdminAPIKey(adminAPIKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminAPIKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "admin API not configured"})
			return
		}

		apiKey := c.GetHeader("X-Admin-API-Key")
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(adminAPIKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing API key"})
			return
		}

		c.Next()
	}
}
