// Package middleware authenticates API requests and exposes the caller
// identity to handlers.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/housecup/backend/internal/apperrors"
	"github.com/emilythestrangee/housecup/backend/internal/auth"
)

const identityKey = "identity"

// AuthMiddleware accepts "Authorization: Bearer <token>", or an access_token
// query parameter for EventSource clients that cannot set headers.
func AuthMiddleware(v *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token = c.Query("access_token")
		}
		if token == "" {
			abort(c, "Authorization token required")
			return
		}

		id, err := v.Parse(token)
		if err != nil {
			abort(c, err.Error())
			return
		}

		c.Set(identityKey, id)
		c.Next()
	}
}

// RequireAdmin must run after AuthMiddleware
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		if !ok || !id.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":           "Admin role required",
				"code":            apperrors.KindUnauthorized,
				"already_applied": false,
			})
			return
		}
		c.Next()
	}
}

func CurrentIdentity(c *gin.Context) (auth.Identity, bool) {
	raw, exists := c.Get(identityKey)
	if !exists {
		return auth.Identity{}, false
	}
	id, ok := raw.(auth.Identity)
	return id, ok
}

func bearerToken(header string) string {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func abort(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":           msg,
		"code":            apperrors.KindUnauthorized,
		"already_applied": false,
	})
}
