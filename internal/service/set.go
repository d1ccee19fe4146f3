package service

import (
	"github.com/rs/zerolog"

	"couponme/api/internal/config"
	"couponme/api/internal/metrics"
	"couponme/api/internal/payment"
	"couponme/api/internal/storage"
)

// Set is the application layer shared by the HTTP handlers and the jobs.
type Set struct {
	Auth       *AuthService
	Categories *CategoryService
	Coupons    *CouponService
	Billing    *BillingService
	Stats      *StatsService
	Users      *UserService
	Uploads    *UploadService
}

// Infra carries the optional collaborators. Provider and Markers may be nil.
type Infra struct {
	Objects  storage.ObjectStore
	Provider payment.Provider
	Markers  EventMarker
	Metrics  *metrics.Metrics
}

func NewSet(cfg *config.AppConfig, stores Stores, infra Infra, log zerolog.Logger) *Set {
	return &Set{
		Auth:       NewAuthService(stores.Users, stores.Sessions, cfg.Security, log.With().Str("component", "auth").Logger()),
		Categories: NewCategoryService(stores.Categories),
		Coupons:    NewCouponService(stores.Coupons, stores.Categories, infra.Metrics, log.With().Str("component", "coupons").Logger()),
		Billing:    NewBillingService(stores.Users, infra.Provider, infra.Markers, cfg.Payment, cfg.Membership, infra.Metrics, log.With().Str("component", "billing").Logger()),
		Stats:      NewStatsService(stores.Users, stores.Coupons),
		Users:      NewUserService(stores.Users, log.With().Str("component", "users").Logger()),
		Uploads:    NewUploadService(stores.Uploads, infra.Objects, cfg.Uploads, log.With().Str("component", "uploads").Logger()),
	}
}
