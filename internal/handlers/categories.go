package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"couponme/api/internal/i18n"
	"couponme/api/internal/middleware"
	"couponme/api/internal/service"
)

func (h HandlerSet) ListCategories(c *gin.Context) {
	categories, err := h.services.Categories.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	lang := middleware.Locale(c)
	items := make([]categoryResponse, 0, len(categories))
	for _, category := range categories {
		items = append(items, presentCategory(category, lang))
	}
	c.JSON(http.StatusOK, gin.H{"categories": items})
}

func (h HandlerSet) CreateCategory(c *gin.Context) {
	var req service.CreateCategoryInput
	if !bindJSON(c, &req) {
		return
	}

	category, err := h.services.Categories.Create(c.Request.Context(), middleware.CurrentUser(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  h.message(c, i18n.MsgCategoryCreated),
		"category": presentCategory(category, middleware.Locale(c)),
	})
}

func (h HandlerSet) UpdateCategory(c *gin.Context) {
	var req service.UpdateCategoryInput
	if !bindJSON(c, &req) {
		return
	}

	category, err := h.services.Categories.Update(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  h.message(c, i18n.MsgCategoryUpdated),
		"category": presentCategory(category, middleware.Locale(c)),
	})
}

func (h HandlerSet) DeleteCategory(c *gin.Context) {
	if err := h.services.Categories.Delete(c.Request.Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": h.message(c, i18n.MsgCategoryDeleted)})
}
