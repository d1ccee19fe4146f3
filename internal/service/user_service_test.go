package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"couponme/api/internal/apperr"
	"couponme/api/internal/models"
)

func TestUserAdministration(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(f.store.Users(), zerolog.Nop())
	ctx := context.Background()

	_, err := svc.List(ctx, &f.business, "")
	requireKind(t, err, apperr.KindForbidden)

	businesses, err := svc.List(ctx, &f.admin, "business")
	require.NoError(t, err)
	assert.Len(t, businesses, 2)

	_, err = svc.List(ctx, &f.admin, "owner")
	requireKind(t, err, apperr.KindValidation)

	var input UpdateUserInput
	require.NoError(t, json.Unmarshal([]byte(`{"role": "BUSINESS", "membershipExpiry": "2026-01-01T00:00:00Z"}`), &input))
	updated, err := svc.Update(ctx, &f.admin, f.user.ID, input)
	require.NoError(t, err)
	assert.Equal(t, models.UserRoleBusiness, updated.Role)
	require.NotNil(t, updated.MembershipExpiry)
	assert.True(t, updated.MembershipExpiry.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))

	input = UpdateUserInput{}
	require.NoError(t, json.Unmarshal([]byte(`{"membershipExpiry": null}`), &input))
	updated, err = svc.Update(ctx, &f.admin, f.member.ID, input)
	require.NoError(t, err)
	assert.Nil(t, updated.MembershipExpiry)
	assert.Equal(t, models.UserRoleUser, updated.Role)

	input = UpdateUserInput{}
	require.NoError(t, json.Unmarshal([]byte(`{"name": "Renamed"}`), &input))
	_, err = svc.Update(ctx, &f.admin, "missing", input)
	requireKind(t, err, apperr.KindNotFound)
}

func TestDeleteUserCascades(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(f.store.Users(), zerolog.Nop())
	coupons := f.coupons()
	ctx := context.Background()

	coupon, err := coupons.Create(ctx, &f.business, f.couponInput("Spring sale"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, &f.admin, f.business.ID))
	_, err = coupons.Get(ctx, coupon.ID)
	requireKind(t, err, apperr.KindNotFound)

	requireKind(t, svc.Delete(ctx, &f.admin, f.business.ID), apperr.KindNotFound)
}

func TestNullableStringAbsent(t *testing.T) {
	var input UpdateUserInput
	require.NoError(t, json.Unmarshal([]byte(`{"name": "Someone"}`), &input))
	assert.False(t, input.MembershipExpiry.Set)
}
