package service

import (
	"couponme/api/internal/apperr"
	"couponme/api/internal/models"
)

// Authorize is the single access rule: an identity is required, and when
// roles are given the identity must hold one of them.
func Authorize(user *models.User, roles ...models.UserRole) error {
	if user == nil {
		return apperr.Unauthorized()
	}
	if len(roles) == 0 {
		return nil
	}
	for _, role := range roles {
		if user.Role == role {
			return nil
		}
	}
	return apperr.Forbidden()
}
