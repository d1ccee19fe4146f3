package middleware

import (
	"github.com/gin-gonic/gin"

	"couponme/api/internal/i18n"
	"couponme/api/internal/models"
	"couponme/api/internal/security"
)

const (
	currentUserKey  = "current_user"
	accessClaimsKey = "access_claims"
	authErrorKey    = "auth_error"
	localeKey       = "locale"
	translatorKey   = "translator"
)

// CurrentUser returns the authenticated user, or nil for anonymous requests.
func CurrentUser(c *gin.Context) *models.User {
	value, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	user, ok := value.(models.User)
	if !ok {
		return nil
	}
	return &user
}

func AccessClaims(c *gin.Context) (security.AccessClaims, bool) {
	value, ok := c.Get(accessClaimsKey)
	if !ok {
		return security.AccessClaims{}, false
	}
	claims, ok := value.(security.AccessClaims)
	return claims, ok
}

// Locale returns the negotiated response language.
func Locale(c *gin.Context) string {
	if lang := c.GetString(localeKey); lang != "" {
		return lang
	}
	return i18n.LangEN
}

func translator(c *gin.Context) *i18n.Translator {
	value, ok := c.Get(translatorKey)
	if !ok {
		return nil
	}
	tr, _ := value.(*i18n.Translator)
	return tr
}
