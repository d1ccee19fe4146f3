package middleware

import (
	"github.com/gin-gonic/gin"

	"couponme/api/internal/models"
	"couponme/api/internal/service"
)

func RequireAuth() gin.HandlerFunc {
	return RequireRoles()
}

// RequireRoles admits authenticated users holding one of roles; with no
// roles any authenticated user passes.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			if value, ok := c.Get(authErrorKey); ok {
				if err, ok := value.(error); ok {
					AbortWithError(c, err)
					return
				}
			}
		}
		if err := service.Authorize(user, roles...); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
