package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"couponme/api/internal/ids"
	"couponme/api/internal/models"
	"couponme/api/internal/repository"
	"couponme/api/internal/security"
)

type SeedUsers interface {
	FindByEmail(ctx context.Context, email string) (models.User, error)
	Create(ctx context.Context, user models.User) error
	Update(ctx context.Context, id string, patch models.UserPatch) (models.User, error)
}

type SeedCategories interface {
	GetBySlug(ctx context.Context, slug string) (models.Category, error)
	Create(ctx context.Context, category models.Category) error
}

var DefaultCategories = []models.Category{
	{Slug: "electronics", NameEn: "Electronics", NameEl: "Ηλεκτρονικά"},
	{Slug: "fashion", NameEn: "Fashion", NameEl: "Μόδα"},
	{Slug: "food", NameEn: "Food & Dining", NameEl: "Φαγητό & Εστίαση"},
	{Slug: "travel", NameEn: "Travel", NameEl: "Ταξίδια"},
	{Slug: "beauty", NameEn: "Beauty & Health", NameEl: "Ομορφιά & Υγεία"},
	{Slug: "home", NameEn: "Home & Garden", NameEl: "Σπίτι & Κήπος"},
	{Slug: "sports", NameEn: "Sports & Outdoors", NameEl: "Αθλητισμός & Υπαίθρια"},
	{Slug: "entertainment", NameEn: "Entertainment", NameEl: "Ψυχαγωγία"},
}

// EnsureAdmin creates an ADMIN account or promotes the existing one with that email.
func EnsureAdmin(ctx context.Context, users SeedUsers, email, password, name string) (models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	existing, err := users.FindByEmail(ctx, email)
	if err == nil {
		if existing.Role == models.UserRoleAdmin {
			return existing, nil
		}
		role := models.UserRoleAdmin
		return users.Update(ctx, existing.ID, models.UserPatch{Role: &role})
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, err
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	admin := models.User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         models.UserRoleAdmin,
	}
	if err := users.Create(ctx, admin); err != nil {
		return models.User{}, fmt.Errorf("create admin: %w", err)
	}
	return admin, nil
}

// SeedCategoryList inserts the default categories that are not present yet
// and returns how many were created.
func SeedCategoryList(ctx context.Context, categories SeedCategories) (int, error) {
	created := 0
	for _, category := range DefaultCategories {
		if _, err := categories.GetBySlug(ctx, category.Slug); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrCategoryNotFound) {
			return created, err
		}

		category.ID = ids.New()
		if err := categories.Create(ctx, category); err != nil {
			if errors.Is(err, repository.ErrDuplicateSlug) {
				continue
			}
			return created, fmt.Errorf("create category %s: %w", category.Slug, err)
		}
		created++
	}
	return created, nil
}
