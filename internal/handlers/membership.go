package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"couponme/api/internal/apperr"
	"couponme/api/internal/middleware"
)

const signatureHeader = "Stripe-Signature"

func (h HandlerSet) Checkout(c *gin.Context) {
	result, err := h.services.Billing.InitiateCheckout(c.Request.Context(), middleware.CurrentUser(c), middleware.Locale(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// PaymentWebhook verifies the provider signature against the raw body, so
// the payload must not be decoded before it reaches the billing service.
func (h HandlerSet) PaymentWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		respondError(c, apperr.Wrap(apperr.KindValidation, apperr.MsgValidationFailed, err))
		return
	}

	result, err := h.services.Billing.HandleWebhook(c.Request.Context(), payload, c.GetHeader(signatureHeader))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{"received": true}
	if result.Duplicate {
		resp["duplicate"] = true
	}
	c.JSON(http.StatusOK, resp)
}
