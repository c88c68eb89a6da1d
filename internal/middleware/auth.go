package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/cartrec/internal/services"
	"github.com/temcen/cartrec/pkg/models"
)

const (
	ContextUserID   = "user_id"
	ContextUserTier = "user_tier"
)

// TokenValidator validates bearer tokens
type TokenValidator interface {
	ValidateToken(ctx context.Context, tokenString string) (*models.JWTClaims, error)
}

var _ TokenValidator = (*services.AuthService)(nil)

// Auth rejects requests without a valid bearer token
func Auth(validator TokenValidator, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "MISSING_AUTHORIZATION", "Authorization header is required")
			return
		}

		if !authenticate(c, validator, logger, authHeader) {
			return
		}
		c.Next()
	}
}

// OptionalAuth sets the user when a bearer token is present and lets
// anonymous requests through. A token that is present but invalid is rejected.
func OptionalAuth(validator TokenValidator, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		if !authenticate(c, validator, logger, authHeader) {
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, validator TokenValidator, logger *logrus.Logger, authHeader string) bool {
	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		abortUnauthorized(c, "INVALID_AUTHORIZATION_FORMAT", "Authorization header must be in format 'Bearer <token>'")
		return false
	}

	claims, err := validator.ValidateToken(c.Request.Context(), tokenParts[1])
	if err != nil {
		logger.WithError(err).Warn("Invalid JWT token")
		abortUnauthorized(c, "INVALID_TOKEN", "Invalid or expired token")
		return false
	}

	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextUserTier, claims.UserTier)
	return true
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
	c.Abort()
}

// GetUserFromContext returns the authenticated user id and tier.
// ok is false for anonymous requests.
func GetUserFromContext(c *gin.Context) (userID, userTier string, ok bool) {
	userID = c.GetString(ContextUserID)
	if userID == "" {
		return "", "", false
	}
	return userID, c.GetString(ContextUserTier), true
}
