package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tradelog/internal/models"
	"tradelog/internal/repository"
)

const contextKey = "auth_user"

// APIKeyMiddleware resolves the X-API-Key header to a user and stashes it
// on the request context. Health endpoints stay open; the webhook route
// authenticates from its body because broker bridges cannot set custom
// headers reliably.
func APIKeyMiddleware(repo repository.Repository, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if p == "/healthz" || p == "/readyz" || strings.HasPrefix(p, "/api/v1/webhook/") {
			c.Next()
			return
		}
		if !strings.HasPrefix(p, "/api/") {
			c.Next()
			return
		}

		key := strings.TrimSpace(c.GetHeader("X-API-Key"))
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing api key"})
			return
		}
		user, err := repo.GetUserByAPIKey(c.Request.Context(), key)
		if err != nil {
			if logger != nil {
				logger.Error("api key lookup failed", zap.Error(err))
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth lookup failed"})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
			return
		}
		c.Set(contextKey, user)
		c.Next()
	}
}

// UserFrom returns the authenticated user stored by the middleware.
func UserFrom(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}
