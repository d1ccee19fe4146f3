package handlers

import (
	"time"

	"couponme/api/internal/models"
)

type userResponse struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Name             string     `json:"name"`
	Role             string     `json:"role"`
	MembershipExpiry *time.Time `json:"membershipExpiry"`
	IsMember         bool       `json:"isMember"`
	CreatedAt        time.Time  `json:"createdAt"`
	CouponCount      *int       `json:"couponCount,omitempty"`
}

func presentUser(user models.User, now time.Time) userResponse {
	return userResponse{
		ID:               user.ID,
		Email:            user.Email,
		Name:             user.Name,
		Role:             string(user.Role),
		MembershipExpiry: user.MembershipExpiry,
		IsMember:         user.IsMember(now),
		CreatedAt:        user.CreatedAt,
	}
}

type categoryResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	NameEn    string    `json:"nameEn"`
	NameEl    string    `json:"nameEl"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func presentCategory(category models.Category, lang string) categoryResponse {
	return categoryResponse{
		ID:        category.ID,
		Name:      category.LocalizedName(lang),
		NameEn:    category.NameEn,
		NameEl:    category.NameEl,
		Slug:      category.Slug,
		CreatedAt: category.CreatedAt,
		UpdatedAt: category.UpdatedAt,
	}
}

type businessResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type couponResponse struct {
	ID                 string            `json:"id"`
	Title              string            `json:"title"`
	Description        string            `json:"description"`
	Code               string            `json:"code,omitempty"`
	CodeLocked         bool              `json:"codeLocked"`
	DiscountPercentage int               `json:"discountPercentage"`
	ExpirationDate     time.Time         `json:"expirationDate"`
	Expired            bool              `json:"expired"`
	ImagePath          *string           `json:"imagePath"`
	Status             string            `json:"status"`
	BusinessID         string            `json:"businessId"`
	CategoryID         string            `json:"categoryId"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
	Business           *businessResponse `json:"business,omitempty"`
	Category           *categoryResponse `json:"category,omitempty"`
}

// presentCoupon hides the redemption code from viewers who have not paid
// for it.
func presentCoupon(coupon models.Coupon, viewer *models.User, lang string, now time.Time) couponResponse {
	resp := couponResponse{
		ID:                 coupon.ID,
		Title:              coupon.Title,
		Description:        coupon.Description,
		DiscountPercentage: coupon.DiscountPercentage,
		ExpirationDate:     coupon.ExpirationDate,
		Expired:            coupon.Expired(now),
		ImagePath:          coupon.ImagePath,
		Status:             string(coupon.Status),
		BusinessID:         coupon.BusinessID,
		CategoryID:         coupon.CategoryID,
		CreatedAt:          coupon.CreatedAt,
		UpdatedAt:          coupon.UpdatedAt,
	}
	if coupon.CodeVisibleTo(viewer, now) {
		resp.Code = coupon.Code
	} else {
		resp.CodeLocked = true
	}
	if coupon.Business != nil {
		resp.Business = &businessResponse{
			ID:    coupon.Business.ID,
			Name:  coupon.Business.Name,
			Email: coupon.Business.Email,
		}
	}
	if coupon.Category != nil {
		category := presentCategory(*coupon.Category, lang)
		resp.Category = &category
	}
	return resp
}

func presentCoupons(coupons []models.Coupon, viewer *models.User, lang string, now time.Time) []couponResponse {
	items := make([]couponResponse, 0, len(coupons))
	for _, coupon := range coupons {
		items = append(items, presentCoupon(coupon, viewer, lang, now))
	}
	return items
}

type statsResponse struct {
	TotalCoupons    int            `json:"totalCoupons"`
	PendingCoupons  int            `json:"pendingCoupons"`
	ApprovedCoupons int            `json:"approvedCoupons"`
	TotalUsers      int            `json:"totalUsers"`
	TotalBusinesses int            `json:"totalBusinesses"`
	ActiveMembers   int            `json:"activeMembers"`
	UsersByRole     map[string]int `json:"usersByRole"`
}

func presentStats(stats models.Stats) statsResponse {
	byRole := make(map[string]int, len(stats.UsersByRole))
	for role, count := range stats.UsersByRole {
		byRole[string(role)] = count
	}
	return statsResponse{
		TotalCoupons:    stats.TotalCoupons,
		PendingCoupons:  stats.PendingCoupons,
		ApprovedCoupons: stats.ApprovedCoupons,
		TotalUsers:      stats.UsersByRole[models.UserRoleUser],
		TotalBusinesses: stats.UsersByRole[models.UserRoleBusiness],
		ActiveMembers:   stats.ActiveMembers,
		UsersByRole:     byRole,
	}
}
