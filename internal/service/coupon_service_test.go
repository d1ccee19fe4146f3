package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"couponme/api/internal/apperr"
	"couponme/api/internal/models"
)

func TestCreateCouponForcesPending(t *testing.T) {
	f := newFixture(t)
	svc := f.coupons()

	coupon, err := svc.Create(context.Background(), &f.business, f.couponInput("Spring sale"))
	require.NoError(t, err)
	assert.Equal(t, models.CouponStatusPending, coupon.Status)
	assert.Equal(t, f.business.ID, coupon.BusinessID)
	assert.Equal(t, 20, coupon.DiscountPercentage)
	require.NotNil(t, coupon.Business)
	require.NotNil(t, coupon.Category)
	assert.Equal(t, "food", coupon.Category.Slug)
}

func TestCreateCouponRequiresBusiness(t *testing.T) {
	f := newFixture(t)
	svc := f.coupons()
	ctx := context.Background()

	_, err := svc.Create(ctx, nil, f.couponInput("Spring sale"))
	requireKind(t, err, apperr.KindUnauthorized)

	for _, actor := range []models.User{f.user, f.admin} {
		_, err := svc.Create(ctx, &actor, f.couponInput("Spring sale"))
		requireKind(t, err, apperr.KindForbidden)
	}
}

func TestCreateCouponValidation(t *testing.T) {
	f := newFixture(t)
	svc := f.coupons()
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateCouponInput)
		field  string
	}{
		{"short title", func(in *CreateCouponInput) { in.Title = "ab" }, "title"},
		{"short description", func(in *CreateCouponInput) { in.Description = "too short" }, "description"},
		{"short code", func(in *CreateCouponInput) { in.Code = "AB" }, "code"},
		{"zero discount", func(in *CreateCouponInput) { in.DiscountPercentage = 0 }, "discountPercentage"},
		{"discount over 100", func(in *CreateCouponInput) { in.DiscountPercentage = 101 }, "discountPercentage"},
		{"fractional discount", func(in *CreateCouponInput) { in.DiscountPercentage = 12.5 }, "discountPercentage"},
		{"bad date", func(in *CreateCouponInput) { in.ExpirationDate = "next week" }, "expirationDate"},
		{"unknown category", func(in *CreateCouponInput) { in.CategoryID = "missing" }, "categoryId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := f.couponInput("Spring sale")
			tt.mutate(&input)
			_, err := svc.Create(ctx, &f.business, input)
			requireKind(t, err, apperr.KindValidation)
			assert.Contains(t, fieldNames(err), tt.field)
		})
	}

	list, err := svc.List(ctx, ListCouponsInput{BusinessID: f.business.ID})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCouponLifecycle(t *testing.T) {
	f := newFixture(t)
	svc := f.coupons()
	ctx := context.Background()

	coupon, err := svc.Create(ctx, &f.business, f.couponInput("Spring sale"))
	require.NoError(t, err)

	public, err := svc.List(ctx, ListCouponsInput{})
	require.NoError(t, err)
	assert.Empty(t, public, "pending coupons are not public")

	_, err = svc.Decide(ctx, &f.business, coupon.ID, models.CouponStatusApproved)
	requireKind(t, err, apperr.KindForbidden)
	current, err := svc.Get(ctx, coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CouponStatusPending, current.Status)

	approved, err := svc.Decide(ctx, &f.admin, coupon.ID, models.CouponStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.CouponStatusApproved, approved.Status)
	assert.Equal(t, coupon.Title, approved.Title)

	public, err = svc.List(ctx, ListCouponsInput{})
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, coupon.ID, public[0].ID)

	rejected, err := svc.Decide(ctx, &f.admin, coupon.ID, models.CouponStatusRejected)
	require.NoError(t, err)
	assert.Equal(t, models.CouponStatusRejected, rejected.Status)

	_, err = svc.Resubmit(ctx, &f.rival, coupon.ID)
	requireKind(t, err, apperr.KindForbidden)

	resubmitted, err := svc.Resubmit(ctx, &f.business, coupon.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CouponStatusPending, resubmitted.Status)

	pending, err := svc.ListPending(ctx, &f.admin)
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestDecideRejectsUnknownDecision(t *testing.T) {
	f := newFixture(t)
	svc := f.coupons()
	ctx := context.Background()

	coupon, err := svc.Create(ctx, &f.business, f.couponInput("Spring sale"))
	require.NoError(t, err)

	_, err = svc.Decide(ctx, &f.admin, coupon.ID, models.CouponStatusPending)
	requireKind(t, err, apperr.KindValidation)

	_, err = svc.Decide(ctx, &f.admin, "missing", models.CouponStatusApproved)
	requireKind(t, err, apperr.KindNotFound)
}

func TestUpdateCouponOwnershipAndStatus(t *testing.T) {
	f := newFixture(t)
	svc := f.coupons()
	ctx := context.Background()

	coupon, err := svc.Create(ctx, &f.business, f.couponInput("Spring sale"))
	require.NoError(t, err)
	_, err = svc.Decide(ctx, &f.admin, coupon.ID, models.CouponStatusApproved)
	require.NoError(t, err)

	title := "Summer sale"
	_, err = svc.Update(ctx, &f.rival, coupon.ID, UpdateCouponInput{Title: &title})
	requireKind(t, err, apperr.KindForbidden)

	updated, err := svc.Update(ctx, &f.business, coupon.ID, UpdateCouponInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, models.CouponStatusApproved, updated.Status, "content edits keep the status")
	assert.Equal(t, coupon.Code, updated.Code)

	approved := models.CouponStatusApproved
	_, err = svc.Update(ctx, &f.business, coupon.ID, UpdateCouponInput{Status: &approved})
	requireKind(t, err, apperr.KindForbidden)

	pending := models.CouponStatusPending
	updated, err = svc.Update(ctx, &f.business, coupon.ID, UpdateCouponInput{Status: &pending})
	require.NoError(t, err)
	assert.Equal(t, models.CouponStatusPending, updated.Status)

	rejected := models.CouponStatusRejected
	updated, err = svc.Update(ctx, &f.admin, coupon.ID, UpdateCouponInput{Status: &rejected})
	require.NoError(t, err)
	assert.Equal(t, models.CouponStatusRejected, updated.Status)

	_, err = svc.Update(ctx, &f.admin, "missing", UpdateCouponInput{Title: &title})
	requireKind(t, err, apperr.KindNotFound)
}

func TestDeleteCoupon(t *testing.T) {
	f := newFixture(t)
	svc := f.coupons()
	ctx := context.Background()

	coupon, err := svc.Create(ctx, &f.business, f.couponInput("Spring sale"))
	require.NoError(t, err)

	requireKind(t, svc.Delete(ctx, &f.rival, coupon.ID), apperr.KindForbidden)
	require.NoError(t, svc.Delete(ctx, &f.business, coupon.ID))

	_, err = svc.Get(ctx, coupon.ID)
	requireKind(t, err, apperr.KindNotFound)
	requireKind(t, svc.Delete(ctx, &f.admin, coupon.ID), apperr.KindNotFound)
}

func TestListCouponsFilters(t *testing.T) {
	f := newFixture(t)
	svc := f.coupons()
	ctx := context.Background()

	live, err := svc.Create(ctx, &f.business, f.couponInput("Live deal"))
	require.NoError(t, err)
	_, err = svc.Decide(ctx, &f.admin, live.ID, models.CouponStatusApproved)
	require.NoError(t, err)

	expiredInput := f.couponInput("Old deal")
	expiredInput.ExpirationDate = f.now.Add(-time.Hour).Format(time.RFC3339)
	expired, err := svc.Create(ctx, &f.business, expiredInput)
	require.NoError(t, err)
	_, err = svc.Decide(ctx, &f.admin, expired.ID, models.CouponStatusApproved)
	require.NoError(t, err)

	_, err = svc.Create(ctx, &f.rival, f.couponInput("Rival deal"))
	require.NoError(t, err)

	public, err := svc.List(ctx, ListCouponsInput{})
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, live.ID, public[0].ID)

	mine, err := svc.List(ctx, ListCouponsInput{BusinessID: f.business.ID})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	pending, err := svc.List(ctx, ListCouponsInput{Status: "pending"})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, f.rival.ID, pending[0].BusinessID)

	bySlug, err := svc.List(ctx, ListCouponsInput{CategorySlug: "food"})
	require.NoError(t, err)
	assert.Len(t, bySlug, 1)

	unknown, err := svc.List(ctx, ListCouponsInput{CategorySlug: "no-such-slug"})
	require.NoError(t, err)
	assert.Empty(t, unknown)

	limited, err := svc.List(ctx, ListCouponsInput{BusinessID: f.business.ID, Limit: "1"})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	for _, limit := range []string{"0", "-3", "ten"} {
		_, err := svc.List(ctx, ListCouponsInput{Limit: limit})
		requireKind(t, err, apperr.KindValidation)
	}

	_, err = svc.List(ctx, ListCouponsInput{Status: "ARCHIVED"})
	requireKind(t, err, apperr.KindValidation)
}

func TestListPendingOldestFirst(t *testing.T) {
	f := newFixture(t)
	svc := f.coupons()
	ctx := context.Background()

	first, err := svc.Create(ctx, &f.business, f.couponInput("First deal"))
	require.NoError(t, err)
	f.now = f.now.Add(time.Minute)
	second, err := svc.Create(ctx, &f.rival, f.couponInput("Second deal"))
	require.NoError(t, err)

	_, err = svc.ListPending(ctx, &f.business)
	requireKind(t, err, apperr.KindForbidden)

	pending, err := svc.ListPending(ctx, &f.admin)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, second.ID, pending[1].ID)
}

func TestCodeVisibility(t *testing.T) {
	f := newFixture(t)
	coupon := models.Coupon{BusinessID: f.business.ID}

	assert.False(t, coupon.CodeVisibleTo(nil, f.now))
	assert.False(t, coupon.CodeVisibleTo(&f.user, f.now))
	assert.False(t, coupon.CodeVisibleTo(&f.rival, f.now))
	assert.True(t, coupon.CodeVisibleTo(&f.member, f.now))
	assert.True(t, coupon.CodeVisibleTo(&f.admin, f.now))
	assert.True(t, coupon.CodeVisibleTo(&f.business, f.now))
	assert.False(t, coupon.CodeVisibleTo(&f.member, f.now.Add(48*time.Hour)))
}
