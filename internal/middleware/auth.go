package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"swift/internal/auth"
	"swift/internal/domain"
)

const (
	callerUsernameKey = "callerUsername"
	callerRoleKey     = "callerRole"
)

// TokenValidator resolves a bearer token to its claims.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// AccountLookup resolves the account behind a token.
type AccountLookup interface {
	Get(ctx context.Context, username string) (*domain.Account, error)
}

// Auth rejects requests without a valid bearer token and stores the caller on the context.
// The token's subject must still exist with the role it was issued for, so tokens
// of deleted or re-registered accounts stop working.
func Auth(validator TokenValidator, accounts AccountLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := validator.Validate(strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		acct, err := accounts.Get(c.Request.Context(), claims.Username)
		if err != nil || acct.Role != claims.Role {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account no longer valid"})
			return
		}

		c.Set(callerUsernameKey, acct.Username)
		c.Set(callerRoleKey, acct.Role)
		c.Next()
	}
}

// RequireRole allows only callers whose token carries one of roles. Must run after Auth.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := CallerRole(c)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "dashboard not available for role"})
	}
}

// CallerUsername returns the authenticated username, or "" outside Auth.
func CallerUsername(c *gin.Context) string {
	return c.GetString(callerUsernameKey)
}

// CallerRole returns the authenticated role, or "" outside Auth.
func CallerRole(c *gin.Context) domain.Role {
	if v, ok := c.Get(callerRoleKey); ok {
		if role, ok := v.(domain.Role); ok {
			return role
		}
	}
	return ""
}
