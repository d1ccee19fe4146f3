package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"couponme/api/internal/models"
	"couponme/api/internal/security"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.User, security.AccessClaims, error)
	Touch(ctx context.Context, sessionID, ip, userAgent string)
}

// Authenticate resolves a bearer token into the current user. Requests
// without a usable token continue anonymously; the failure is kept so that
// RequireAuth can report it.
func Authenticate(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.Next()
			return
		}

		tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		user, claims, err := auth.Authenticate(c.Request.Context(), tokenStr)
		if err != nil {
			c.Set(authErrorKey, err)
			c.Next()
			return
		}

		auth.Touch(c.Request.Context(), claims.SessionID, c.ClientIP(), c.GetHeader("User-Agent"))

		c.Set(accessClaimsKey, claims)
		c.Set(currentUserKey, user)

		c.Next()
	}
}
