// server/internal/api/middleware/auth.go
package middleware

import (
	"net/http"
	"strings"

	"gps-fleet-api-server/internal/auth"

	"github.com/gin-gonic/gin"
)

// Context keys set by Authenticate.
const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
	ContextUserRole = "user_role"
)

func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"status": "error", "message": message})
}

// Authenticate validates the Bearer JWT and puts the user into the context.
func Authenticate(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header is required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			abortWithError(c, http.StatusUnauthorized, "Invalid token format")
			return
		}

		claims, err := auth.ParseJWT(secret, tokenString)
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		SetUser(c, claims)
		c.Next()
	}
}

// SetUser stores the authenticated user in the request context.
func SetUser(c *gin.Context, claims *auth.JWTClaims) {
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextUsername, claims.Username)
	c.Set(ContextUserRole, claims.Role)
}

// CurrentUserID returns the id stored by Authenticate.
func CurrentUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// Authorize only lets through users whose role is in allowedRoles.
func Authorize(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, ok := c.Get(ContextUserRole)
		if !ok {
			// Authenticate must run first
			abortWithError(c, http.StatusInternalServerError, "User role not found in context")
			return
		}

		for _, role := range allowedRoles {
			if role == userRole {
				c.Next()
				return
			}
		}

		abortWithError(c, http.StatusForbidden, "You do not have permission to access this resource")
	}
}
