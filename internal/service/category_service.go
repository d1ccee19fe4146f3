package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"couponme/api/internal/apperr"
	"couponme/api/internal/ids"
	"couponme/api/internal/models"
	"couponme/api/internal/repository"
)

type CategoryService struct {
	categories CategoryStore
}

func NewCategoryService(categories CategoryStore) *CategoryService {
	return &CategoryService{categories: categories}
}

type CreateCategoryInput struct {
	NameEn string `json:"nameEn" validate:"required,min=2,max=50"`
	NameEl string `json:"nameEl" validate:"required,min=2,max=50"`
	Slug   string `json:"slug" validate:"required,min=2,max=50,slug"`
}

type UpdateCategoryInput struct {
	NameEn *string `json:"nameEn" validate:"omitempty,min=2,max=50"`
	NameEl *string `json:"nameEl" validate:"omitempty,min=2,max=50"`
	Slug   *string `json:"slug" validate:"omitempty,min=2,max=50,slug"`
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return categories, nil
}

func (s *CategoryService) Create(ctx context.Context, actor *models.User, input CreateCategoryInput) (models.Category, error) {
	if err := Authorize(actor, models.UserRoleAdmin); err != nil {
		return models.Category{}, err
	}
	input.NameEn = strings.TrimSpace(input.NameEn)
	input.NameEl = strings.TrimSpace(input.NameEl)
	input.Slug = strings.TrimSpace(input.Slug)
	if err := validateStruct(input); err != nil {
		return models.Category{}, err
	}

	category := models.Category{
		ID:     ids.New(),
		NameEn: input.NameEn,
		NameEl: input.NameEl,
		Slug:   input.Slug,
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return models.Category{}, mapCategoryError(err)
	}
	return s.get(ctx, category.ID)
}

func (s *CategoryService) Update(ctx context.Context, actor *models.User, id string, input UpdateCategoryInput) (models.Category, error) {
	if err := Authorize(actor, models.UserRoleAdmin); err != nil {
		return models.Category{}, err
	}
	input.NameEn = trimPtr(input.NameEn)
	input.NameEl = trimPtr(input.NameEl)
	input.Slug = trimPtr(input.Slug)
	if err := validateStruct(input); err != nil {
		return models.Category{}, err
	}

	category, err := s.categories.Update(ctx, id, models.CategoryPatch{
		NameEn: input.NameEn,
		NameEl: input.NameEl,
		Slug:   input.Slug,
	})
	if err != nil {
		return models.Category{}, mapCategoryError(err)
	}
	return category, nil
}

// Delete removes an unused category. A category still referenced by coupons
// yields a conflict carrying the number of blocking coupons.
func (s *CategoryService) Delete(ctx context.Context, actor *models.User, id string) error {
	if err := Authorize(actor, models.UserRoleAdmin); err != nil {
		return err
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		return mapCategoryError(err)
	}
	return nil
}

func (s *CategoryService) get(ctx context.Context, id string) (models.Category, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return models.Category{}, mapCategoryError(err)
	}
	return category, nil
}

func mapCategoryError(err error) error {
	var inUse *repository.CategoryInUseError
	switch {
	case errors.As(err, &inUse):
		return apperr.Conflict(apperr.MsgCategoryInUse).With("count", inUse.Count)
	case errors.Is(err, repository.ErrDuplicateSlug):
		return apperr.Conflict(apperr.MsgSlugTaken)
	case errors.Is(err, repository.ErrCategoryNotFound):
		return apperr.NotFound(apperr.MsgCategoryNotFound)
	default:
		return apperr.Internal(fmt.Errorf("category store: %w", err))
	}
}

func trimPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}
