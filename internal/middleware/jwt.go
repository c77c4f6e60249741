package middleware

import (
	"strings"

	"profile_hub/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AuthMiddleware validates the request's token and puts the subject userID
// into the context. The token is read from the "token" cookie, falling back
// to an Authorization bearer header. All verification failures (expired,
// malformed, bad signature) get the same response body.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.JSON(401, gin.H{"error": "Login required"})
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(tokenString, secret)
		if err != nil {
			logrus.WithError(err).Debug("token validation failed")
			c.JSON(401, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(auth.UserIDKey, claims.UserID)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	if cookie, err := c.Cookie(auth.TokenCookie); err == nil && cookie != "" {
		return cookie
	}

	authHeader := c.GetHeader("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}

	return ""
}
