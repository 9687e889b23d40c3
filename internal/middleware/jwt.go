package middleware

import (
	"net/http"
	"strings"

	"bookkeeping/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AuthMiddleware verifies the bearer token and stores the caller identity
// under auth.IdentityKey. A missing token is 401, a bad one 403.
func AuthMiddleware(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		// Extract token from "Bearer <token>"
		scheme, tokenString, found := strings.Cut(strings.TrimSpace(authHeader), " ")
		tokenString = strings.TrimSpace(tokenString)
		if !found || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Access token required"})
			c.Abort()
			return
		}

		claims, err := tokens.Verify(tokenString)
		if err != nil {
			logrus.WithError(err).Debug("Rejected bearer token")
			c.JSON(http.StatusForbidden, gin.H{"message": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(auth.IdentityKey, claims.Identity())
		c.Next()
	}
}
