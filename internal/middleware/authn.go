package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"kanmind/backend/internal/models"
	"kanmind/backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	ContextUserID = "user_id"
	ContextUser   = "user"
	ContextClaims = "claims"
)

type TokenVerifier interface {
	ParseAccess(raw string) (*services.AccessClaims, error)
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

func abortUnauthenticated(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   code,
		"message": message,
	})
}

// Authenticate requires a valid, unrevoked bearer access token whose user
// still exists. When the denylist cannot be reached the token is accepted.
func Authenticate(tokens TokenVerifier, users UserLookup, log *slog.Logger) gin.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthenticated(c, "missing_token", "Authorization header is required")
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthenticated(c, "invalid_token_format", "Authorization header must use Bearer token")
			return
		}

		claims, err := tokens.ParseAccess(strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")))
		if err != nil {
			abortUnauthenticated(c, "invalid_token", "Token validation failed")
			return
		}

		ctx := c.Request.Context()
		revoked, err := tokens.IsRevoked(ctx, claims.ID)
		if err != nil {
			log.WarnContext(ctx, "token denylist unavailable, accepting token",
				slog.String("request_id", RequestIDFrom(c)),
				slog.String("error", err.Error()))
		} else if revoked {
			abortUnauthenticated(c, "revoked_token", "Token has been revoked")
			return
		}

		user, err := users.GetByID(ctx, claims.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				abortUnauthenticated(c, "unknown_user", "Token user no longer exists")
				return
			}
			log.ErrorContext(ctx, "loading token user failed",
				slog.String("request_id", RequestIDFrom(c)),
				slog.String("error", err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUser, user)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// CurrentUserID returns the authenticated user's id.
func CurrentUserID(c *gin.Context) (uint, bool) {
	value, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := value.(uint)
	return id, ok
}

func CurrentClaims(c *gin.Context) (*services.AccessClaims, bool) {
	value, ok := c.Get(ContextClaims)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*services.AccessClaims)
	return claims, ok
}
