// Package auth holds the session-read middleware for the HTTP surface.
// Login and identity issuance live in the surrounding product; this service
// only consumes the shared session cookie.
package auth

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// RequireAuth is a middleware that ensures the caller carries an
// authenticated session and exposes the user id to downstream handlers.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID := session.Get("user_id")

		if userID == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "authentication required",
			})
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}
