package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"couponme/api/internal/i18n"
	"couponme/api/internal/middleware"
	"couponme/api/internal/service"
)

func (h HandlerSet) ListPendingCoupons(c *gin.Context) {
	user := middleware.CurrentUser(c)
	coupons, err := h.services.Coupons.ListPending(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"coupons": presentCoupons(coupons, user, middleware.Locale(c), h.now()),
	})
}

func (h HandlerSet) ListUsers(c *gin.Context) {
	users, err := h.services.Users.List(c.Request.Context(), middleware.CurrentUser(c), c.Query("role"))
	if err != nil {
		respondError(c, err)
		return
	}

	now := h.now()
	items := make([]userResponse, 0, len(users))
	for _, user := range users {
		item := presentUser(user.User, now)
		count := user.CouponCount
		item.CouponCount = &count
		items = append(items, item)
	}
	c.JSON(http.StatusOK, gin.H{"users": items})
}

func (h HandlerSet) UpdateUser(c *gin.Context) {
	var req service.UpdateUserInput
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.services.Users.Update(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": h.message(c, i18n.MsgUserUpdated),
		"user":    presentUser(user, h.now()),
	})
}

func (h HandlerSet) DeleteUser(c *gin.Context) {
	if err := h.services.Users.Delete(c.Request.Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": h.message(c, i18n.MsgUserDeleted)})
}

func (h HandlerSet) Stats(c *gin.Context) {
	stats, err := h.services.Stats.Compute(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": presentStats(stats)})
}
