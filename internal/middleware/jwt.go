package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qrcourses/backend/internal/auth"
	"github.com/qrcourses/backend/pkg/response"
)

const (
	// ContextAdminID is the key for admin ID in gin context.
	ContextAdminID = auth.ContextAdminID
	// ContextAdminUsername is the key for admin username in gin context.
	ContextAdminUsername = "admin_username"
)

// JWT returns a middleware that validates the bearer token and sets admin claims in context.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextAdminID, claims.AdminID)
		c.Set(ContextAdminUsername, claims.Username)
		c.Next()
	}
}
