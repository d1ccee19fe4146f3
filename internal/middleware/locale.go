package middleware

import (
	"github.com/gin-gonic/gin"

	"couponme/api/internal/i18n"
)

const localeHeader = "X-Locale"

// Negotiate picks the response language from ?locale=, X-Locale or
// Accept-Language, in that order.
func Negotiate(tr *i18n.Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		explicit := c.Query("locale")
		if explicit == "" {
			explicit = c.GetHeader(localeHeader)
		}
		lang := i18n.Negotiate(explicit, c.GetHeader("Accept-Language"))

		c.Set(localeKey, lang)
		c.Set(translatorKey, tr)
		c.Header("Content-Language", lang)

		c.Next()
	}
}
