package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"couponme/api/internal/i18n"
	"couponme/api/internal/middleware"
	"couponme/api/internal/models"
	"couponme/api/internal/service"
)

func (h HandlerSet) ListCoupons(c *gin.Context) {
	coupons, err := h.services.Coupons.List(c.Request.Context(), service.ListCouponsInput{
		Status:       c.Query("status"),
		BusinessID:   c.Query("businessId"),
		CategoryID:   c.Query("categoryId"),
		CategorySlug: c.Query("category"),
		Limit:        c.Query("limit"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"coupons": presentCoupons(coupons, middleware.CurrentUser(c), middleware.Locale(c), h.now()),
	})
}

func (h HandlerSet) GetCoupon(c *gin.Context) {
	coupon, err := h.services.Coupons.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"coupon": h.presentCoupon(c, coupon)})
}

func (h HandlerSet) CreateCoupon(c *gin.Context) {
	var req service.CreateCouponInput
	if !bindJSON(c, &req) {
		return
	}

	coupon, err := h.services.Coupons.Create(c.Request.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": h.message(c, i18n.MsgCouponCreated),
		"coupon":  h.presentCoupon(c, coupon),
	})
}

func (h HandlerSet) UpdateCoupon(c *gin.Context) {
	var req service.UpdateCouponInput
	if !bindJSON(c, &req) {
		return
	}

	coupon, err := h.services.Coupons.Update(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": h.message(c, i18n.MsgCouponUpdated),
		"coupon":  h.presentCoupon(c, coupon),
	})
}

func (h HandlerSet) DeleteCoupon(c *gin.Context) {
	if err := h.services.Coupons.Delete(c.Request.Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": h.message(c, i18n.MsgCouponDeleted)})
}

type decisionRequest struct {
	Status models.CouponStatus `json:"status"`
}

func (h HandlerSet) DecideCoupon(c *gin.Context) {
	var req decisionRequest
	if !bindJSON(c, &req) {
		return
	}

	coupon, err := h.services.Coupons.Decide(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	msgID := i18n.MsgCouponApproved
	if coupon.Status == models.CouponStatusRejected {
		msgID = i18n.MsgCouponRejected
	}
	c.JSON(http.StatusOK, gin.H{
		"message": h.message(c, msgID),
		"coupon":  h.presentCoupon(c, coupon),
	})
}

func (h HandlerSet) ResubmitCoupon(c *gin.Context) {
	coupon, err := h.services.Coupons.Resubmit(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": h.message(c, i18n.MsgCouponResubmitted),
		"coupon":  h.presentCoupon(c, coupon),
	})
}

func (h HandlerSet) presentCoupon(c *gin.Context, coupon models.Coupon) couponResponse {
	return presentCoupon(coupon, middleware.CurrentUser(c), middleware.Locale(c), h.now())
}
