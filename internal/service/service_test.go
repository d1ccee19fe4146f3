package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"couponme/api/internal/apperr"
	"couponme/api/internal/ids"
	"couponme/api/internal/models"
	"couponme/api/internal/repository/memory"
)

type fixture struct {
	store    *memory.Store
	now      time.Time
	admin    models.User
	business models.User
	rival    models.User
	member   models.User
	user     models.User
	category models.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.New(),
		now:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.store.SetClock(f.clock)

	f.admin = f.createUser(t, "admin@example.com", models.UserRoleAdmin, nil)
	f.business = f.createUser(t, "shop@example.com", models.UserRoleBusiness, nil)
	f.rival = f.createUser(t, "rival@example.com", models.UserRoleBusiness, nil)
	expiry := f.now.Add(24 * time.Hour)
	f.member = f.createUser(t, "member@example.com", models.UserRoleUser, &expiry)
	f.user = f.createUser(t, "user@example.com", models.UserRoleUser, nil)

	f.category = models.Category{ID: ids.New(), NameEn: "Food", NameEl: "Φαγητό", Slug: "food"}
	require.NoError(t, f.store.Categories().Create(context.Background(), f.category))
	return f
}

func (f *fixture) clock() time.Time { return f.now }

func (f *fixture) createUser(t *testing.T, email string, role models.UserRole, expiry *time.Time) models.User {
	t.Helper()
	user := models.User{
		ID:               ids.New(),
		Email:            email,
		PasswordHash:     []byte("x"),
		Name:             "Test " + string(role),
		Role:             role,
		MembershipExpiry: expiry,
	}
	require.NoError(t, f.store.Users().Create(context.Background(), user))
	return user
}

func (f *fixture) coupons() *CouponService {
	svc := NewCouponService(f.store.Coupons(), f.store.Categories(), nil, zerolog.Nop())
	svc.now = f.clock
	return svc
}

func (f *fixture) couponInput(title string) CreateCouponInput {
	return CreateCouponInput{
		Title:              title,
		Description:        "Twenty percent off every order",
		Code:               "SAVE20",
		DiscountPercentage: 20,
		ExpirationDate:     f.now.Add(30 * 24 * time.Hour).Format(time.RFC3339),
		CategoryID:         f.category.ID,
	}
}

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, apperr.KindOf(err), "unexpected error: %v", err)
}

func fieldNames(err error) []string {
	appErr, ok := apperr.As(err)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(appErr.Fields))
	for _, fe := range appErr.Fields {
		names = append(names, fe.Field)
	}
	return names
}
