package middleware

import (
	"github.com/gin-gonic/gin"

	"couponme/api/internal/apperr"
)

// AbortWithError writes the localized error body and stops the chain.
// Internal details never reach the client; the error is attached to the
// context so the request logger can record it.
func AbortWithError(c *gin.Context, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		appErr = apperr.Internal(err)
	}
	_ = c.Error(err)

	body := gin.H{
		"error": translator(c).Translate(appErr.MessageID, Locale(c), appErr.Params),
		"code":  appErr.Kind,
	}
	details := gin.H{}
	for key, value := range appErr.Params {
		details[key] = value
	}
	if len(appErr.Fields) > 0 {
		details["fields"] = appErr.Fields
	}
	if len(details) > 0 {
		body["details"] = details
	}

	c.AbortWithStatusJSON(apperr.HTTPStatus(appErr.Kind), body)
}
