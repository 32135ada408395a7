package middleware

import (
	"context"
	"net/http"
	"strings"

	"medvault-server/internal/auth"

	"github.com/gin-gonic/gin"
)

// Authenticator resolves a bearer token to the session it belongs to.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Identity, error)
}

// AuthMiddleware creates a JWT authentication middleware
func AuthMiddleware(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get token from Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		id, err := a.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			c.Error(err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
			return
		}

		// Repositories read the identity from the request context
		c.Set("userID", id.UserID)
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))

		c.Next()
	}
}
