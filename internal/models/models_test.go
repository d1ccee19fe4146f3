package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUserIsMember(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)
	exact := now

	assert.False(t, User{}.IsMember(now))
	assert.True(t, User{MembershipExpiry: &future}.IsMember(now))
	assert.False(t, User{MembershipExpiry: &past}.IsMember(now))
	assert.False(t, User{MembershipExpiry: &exact}.IsMember(now))
}

func TestRoleAndStatusValid(t *testing.T) {
	assert.True(t, UserRoleBusiness.Valid())
	assert.False(t, UserRole("superadmin").Valid())
	assert.True(t, CouponStatusRejected.Valid())
	assert.False(t, CouponStatus("approved").Valid())
}

func TestCategoryLocalizedName(t *testing.T) {
	c := Category{NameEn: "Books", NameEl: "Βιβλία"}
	assert.Equal(t, "Βιβλία", c.LocalizedName("el"))
	assert.Equal(t, "Books", c.LocalizedName("en"))
	assert.Equal(t, "Books", c.LocalizedName(""))
}

func TestCouponPatchEmpty(t *testing.T) {
	assert.True(t, CouponPatch{}.Empty())
	title := "x"
	assert.False(t, CouponPatch{Title: &title}.Empty())
}
