package middleware

import (
	"github.com/gin-gonic/gin"

	"ragis-server/internal/auth"
	"ragis-server/internal/config"
	"ragis-server/utils"
)

// RequireAuth validates the bearer token (or access_token cookie) and
// stores the caller's identity on the request context.
func RequireAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := utils.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if token == "" {
			if cookie, err := c.Cookie("access_token"); err == nil {
				token = cookie
			}
		}
		if token == "" {
			utils.RespondWithUnauthorized(c, "Missing authentication token")
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(cfg.JWTSecret, token)
		if err != nil {
			utils.RespondWithUnauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set("username", claims.Username)
		c.Set("role", claims.Role)
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != "admin" {
			utils.RespondWithForbidden(c, "Admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}
