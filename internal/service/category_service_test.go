package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"couponme/api/internal/apperr"
)

func TestCategoryCRUD(t *testing.T) {
	f := newFixture(t)
	svc := NewCategoryService(f.store.Categories())
	ctx := context.Background()

	_, err := svc.Create(ctx, &f.business, CreateCategoryInput{NameEn: "Travel", NameEl: "Ταξίδια", Slug: "travel"})
	requireKind(t, err, apperr.KindForbidden)

	created, err := svc.Create(ctx, &f.admin, CreateCategoryInput{NameEn: "Travel", NameEl: "Ταξίδια", Slug: "travel"})
	require.NoError(t, err)
	assert.Equal(t, "travel", created.Slug)

	_, err = svc.Create(ctx, &f.admin, CreateCategoryInput{NameEn: "Trips", NameEl: "Εκδρομές", Slug: "travel"})
	requireKind(t, err, apperr.KindConflict)

	_, err = svc.Create(ctx, &f.admin, CreateCategoryInput{NameEn: "Bad", NameEl: "Κακό", Slug: "Not A Slug"})
	requireKind(t, err, apperr.KindValidation)
	assert.Contains(t, fieldNames(err), "slug")

	name := "Holidays"
	updated, err := svc.Update(ctx, &f.admin, created.ID, UpdateCategoryInput{NameEn: &name})
	require.NoError(t, err)
	assert.Equal(t, "Holidays", updated.NameEn)
	assert.Equal(t, "Ταξίδια", updated.NameEl)

	slug := "food"
	_, err = svc.Update(ctx, &f.admin, created.ID, UpdateCategoryInput{Slug: &slug})
	requireKind(t, err, apperr.KindConflict)

	_, err = svc.Update(ctx, &f.admin, "missing", UpdateCategoryInput{NameEn: &name})
	requireKind(t, err, apperr.KindNotFound)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Food", list[0].NameEn)

	require.NoError(t, svc.Delete(ctx, &f.admin, created.ID))
	requireKind(t, svc.Delete(ctx, &f.admin, created.ID), apperr.KindNotFound)
}

func TestCategoryDeleteInUse(t *testing.T) {
	f := newFixture(t)
	svc := NewCategoryService(f.store.Categories())
	coupons := f.coupons()
	ctx := context.Background()

	for _, title := range []string{"First deal", "Second deal"} {
		_, err := coupons.Create(ctx, &f.business, f.couponInput(title))
		require.NoError(t, err)
	}

	err := svc.Delete(ctx, &f.admin, f.category.ID)
	requireKind(t, err, apperr.KindConflict)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.MsgCategoryInUse, appErr.MessageID)
	assert.Equal(t, 2, appErr.Params["count"])

	_, err = f.store.Categories().GetByID(ctx, f.category.ID)
	require.NoError(t, err)
}
