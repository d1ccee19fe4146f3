package repository

import (
	"time"

	"couponme/api/internal/models"
)

const MaxListLimit = 100

// CouponFilter narrows a coupon listing. Zero values mean "no constraint".
type CouponFilter struct {
	Status       *models.CouponStatus
	BusinessID   string
	CategoryID   string
	CategorySlug string
	// UnexpiredAt hides coupons whose expiration date is before the given time.
	UnexpiredAt *time.Time
	Limit       int
	OldestFirst bool
}
