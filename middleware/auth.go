package middleware

import (
	"net/http"
	"strings"

	"fastaid/utils"

	"github.com/gin-gonic/gin"
)

// Context keys set by JWTAuthMiddleware.
const (
	SubjectKey = "subject"
	RoleKey    = "role"
)

// JWTAuthMiddleware validates the bearer token and stores its subject and role.
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := utils.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(SubjectKey, claims.Subject)
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}

// Subject returns the authenticated caller's ID.
func Subject(c *gin.Context) string {
	return c.GetString(SubjectKey)
}

// Role returns the authenticated caller's role.
func Role(c *gin.Context) string {
	return c.GetString(RoleKey)
}
