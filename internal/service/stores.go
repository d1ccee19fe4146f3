package service

import (
	"context"
	"time"

	"couponme/api/internal/models"
	"couponme/api/internal/repository"
)

type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	List(ctx context.Context, role *models.UserRole) ([]models.UserWithStats, error)
	Update(ctx context.Context, id string, patch models.UserPatch) (models.User, error)
	SetMembershipExpiry(ctx context.Context, id string, expiry time.Time) error
	Delete(ctx context.Context, id string) error
	CountByRole(ctx context.Context) (map[models.UserRole]int, error)
	CountActiveMembers(ctx context.Context, now time.Time) (int, error)
}

type SessionStore interface {
	Create(ctx context.Context, session models.Session) error
	GetByID(ctx context.Context, id string) (models.Session, error)
	FindByRefreshHash(ctx context.Context, refreshHash []byte) (models.Session, error)
	Rotate(ctx context.Context, id string, refreshHash []byte, expiresAt time.Time) error
	CountByUser(ctx context.Context, userID string) (int, error)
	DeleteOldestSessions(ctx context.Context, userID string, keepLatest int) error
	DeleteByID(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Touch(ctx context.Context, sessionID string, ip string, userAgent string) error
}

type CategoryStore interface {
	List(ctx context.Context) ([]models.Category, error)
	GetByID(ctx context.Context, id string) (models.Category, error)
	GetBySlug(ctx context.Context, slug string) (models.Category, error)
	Create(ctx context.Context, category models.Category) error
	Update(ctx context.Context, id string, patch models.CategoryPatch) (models.Category, error)
	Delete(ctx context.Context, id string) error
}

type CouponStore interface {
	Create(ctx context.Context, coupon models.Coupon) error
	GetByID(ctx context.Context, id string) (models.Coupon, error)
	List(ctx context.Context, filter repository.CouponFilter) ([]models.Coupon, error)
	Update(ctx context.Context, id string, patch models.CouponPatch) (models.Coupon, error)
	SetStatus(ctx context.Context, id string, status models.CouponStatus) (models.Coupon, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, status *models.CouponStatus) (int, error)
}

type UploadStore interface {
	Create(ctx context.Context, upload models.Upload) error
	ListOrphans(ctx context.Context, before time.Time, limit int) ([]models.Upload, error)
	Delete(ctx context.Context, id string) error
}

// Stores bundles the persistence backends a HandlerSet is built from.
type Stores struct {
	Users      UserStore
	Sessions   SessionStore
	Categories CategoryStore
	Coupons    CouponStore
	Uploads    UploadStore
}

// Clock is the time source used for expiry and membership arithmetic.
type Clock func() time.Time
