package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"couponme/api/internal/apperr"
	"couponme/api/internal/config"
	"couponme/api/internal/i18n"
	"couponme/api/internal/middleware"
	"couponme/api/internal/models"
	"couponme/api/internal/service"
)

// HealthCheck reports the reachability of one dependency.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type HandlerSet struct {
	log        zerolog.Logger
	cfg        *config.AppConfig
	services   *service.Set
	translator *i18n.Translator
	checks     []HealthCheck
	now        func() time.Time
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, services *service.Set, translator *i18n.Translator, checks ...HealthCheck) HandlerSet {
	return HandlerSet{
		log:        log,
		cfg:        cfg,
		services:   services,
		translator: translator,
		checks:     checks,
		now:        time.Now,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.Use(
		middleware.Negotiate(h.translator),
		middleware.Authenticate(h.services.Auth),
	)

	router.GET("/healthz", h.Health)

	router.POST("/register", h.RegisterUser)
	auth := router.Group("/auth")
	{
		auth.POST("/register", h.RegisterUser)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", middleware.RequireAuth(), h.Logout)
		auth.GET("/me", middleware.RequireAuth(), h.Me)
	}

	categories := router.Group("/categories")
	{
		categories.GET("", h.ListCategories)
		categories.POST("", middleware.RequireRoles(models.UserRoleAdmin), h.CreateCategory)
		categories.PATCH("/:id", middleware.RequireRoles(models.UserRoleAdmin), h.UpdateCategory)
		categories.DELETE("/:id", middleware.RequireRoles(models.UserRoleAdmin), h.DeleteCategory)
	}

	coupons := router.Group("/coupons")
	{
		coupons.GET("", h.ListCoupons)
		coupons.POST("", middleware.RequireRoles(models.UserRoleBusiness), h.CreateCoupon)
		coupons.GET("/:id", h.GetCoupon)
		coupons.PATCH("/:id", middleware.RequireAuth(), h.UpdateCoupon)
		coupons.DELETE("/:id", middleware.RequireAuth(), h.DeleteCoupon)
		coupons.POST("/:id/approve", middleware.RequireRoles(models.UserRoleAdmin), h.DecideCoupon)
		coupons.POST("/:id/resubmit", middleware.RequireAuth(), h.ResubmitCoupon)
	}

	admin := router.Group("/admin")
	admin.Use(middleware.RequireRoles(models.UserRoleAdmin))
	{
		admin.GET("/coupons/pending", h.ListPendingCoupons)
		admin.GET("/users", h.ListUsers)
		admin.PATCH("/users/:id", h.UpdateUser)
		admin.DELETE("/users/:id", h.DeleteUser)
		admin.GET("/stats", h.Stats)
	}

	router.POST("/membership/checkout", middleware.RequireAuth(), h.Checkout)
	router.POST("/webhooks/payment", h.PaymentWebhook)
	router.POST("/webhooks/stripe", h.PaymentWebhook)

	router.POST("/upload", middleware.RequireRoles(models.UserRoleBusiness, models.UserRoleAdmin), h.Upload)
}

func respondError(c *gin.Context, err error) {
	middleware.AbortWithError(c, err)
}

// bindJSON decodes the request body; malformed JSON is reported as a
// validation failure on the body rather than a server error.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, apperr.Wrap(apperr.KindValidation, apperr.MsgValidationFailed, err).
			With("field", "body"))
		return false
	}
	return true
}

func (h HandlerSet) message(c *gin.Context, msgID string) string {
	return h.translator.Translate(msgID, middleware.Locale(c), nil)
}
