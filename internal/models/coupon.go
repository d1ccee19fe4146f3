package models

import "time"

type CouponStatus string

const (
	CouponStatusPending  CouponStatus = "PENDING"
	CouponStatusApproved CouponStatus = "APPROVED"
	CouponStatusRejected CouponStatus = "REJECTED"
)

func (s CouponStatus) Valid() bool {
	switch s {
	case CouponStatusPending, CouponStatusApproved, CouponStatusRejected:
		return true
	}
	return false
}

type Coupon struct {
	ID                 string
	Title              string
	Description        string
	Code               string
	DiscountPercentage int
	ExpirationDate     time.Time
	ImagePath          *string
	Status             CouponStatus
	BusinessID         string
	CategoryID         string
	CreatedAt          time.Time
	UpdatedAt          time.Time

	Business *BusinessSummary
	Category *Category
}

func (c Coupon) Expired(now time.Time) bool {
	return c.ExpirationDate.Before(now)
}

type BusinessSummary struct {
	ID    string
	Name  string
	Email string
}

// CouponPatch carries only the fields a caller supplied. A non-nil empty
// ImagePath clears the image.
type CouponPatch struct {
	Title              *string
	Description        *string
	Code               *string
	DiscountPercentage *int
	ExpirationDate     *time.Time
	ImagePath          *string
	CategoryID         *string
	Status             *CouponStatus
}

func (p CouponPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Code == nil &&
		p.DiscountPercentage == nil && p.ExpirationDate == nil &&
		p.ImagePath == nil && p.CategoryID == nil && p.Status == nil
}

// CodeVisibleTo reports whether viewer may see the redemption code: paid
// members, administrators and the owning business can.
func (c Coupon) CodeVisibleTo(viewer *User, now time.Time) bool {
	if viewer == nil {
		return false
	}
	return viewer.Role == UserRoleAdmin || viewer.ID == c.BusinessID || viewer.IsMember(now)
}
