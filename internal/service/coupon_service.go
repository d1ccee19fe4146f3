package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"couponme/api/internal/apperr"
	"couponme/api/internal/ids"
	"couponme/api/internal/metrics"
	"couponme/api/internal/models"
	"couponme/api/internal/repository"
)

type CouponService struct {
	coupons    CouponStore
	categories CategoryStore
	metrics    *metrics.Metrics
	log        zerolog.Logger
	now        Clock
}

func NewCouponService(coupons CouponStore, categories CategoryStore, m *metrics.Metrics, log zerolog.Logger) *CouponService {
	return &CouponService{
		coupons:    coupons,
		categories: categories,
		metrics:    m,
		log:        log,
		now:        time.Now,
	}
}

type CreateCouponInput struct {
	Title              string  `json:"title" validate:"required,min=3,max=200"`
	Description        string  `json:"description" validate:"required,min=10,max=5000"`
	Code               string  `json:"code" validate:"required,min=3,max=50"`
	DiscountPercentage float64 `json:"discountPercentage" validate:"min=1,max=100,whole"`
	ExpirationDate     string  `json:"expirationDate" validate:"required"`
	CategoryID         string  `json:"categoryId" validate:"required"`
	ImagePath          *string `json:"imagePath" validate:"omitempty,max=500"`
}

type UpdateCouponInput struct {
	Title              *string              `json:"title" validate:"omitempty,min=3,max=200"`
	Description        *string              `json:"description" validate:"omitempty,min=10,max=5000"`
	Code               *string              `json:"code" validate:"omitempty,min=3,max=50"`
	DiscountPercentage *float64             `json:"discountPercentage" validate:"omitempty,min=1,max=100,whole"`
	ExpirationDate     *string              `json:"expirationDate"`
	CategoryID         *string              `json:"categoryId" validate:"omitempty,min=1"`
	ImagePath          *string              `json:"imagePath" validate:"omitempty,max=500"`
	Status             *models.CouponStatus `json:"status"`
}

// ListCouponsInput carries the raw query parameters of a public listing.
type ListCouponsInput struct {
	Status       string
	BusinessID   string
	CategoryID   string
	CategorySlug string
	Limit        string
}

func (s *CouponService) Create(ctx context.Context, actor *models.User, input CreateCouponInput) (models.Coupon, error) {
	if err := Authorize(actor, models.UserRoleBusiness); err != nil {
		return models.Coupon{}, err
	}
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Code = strings.TrimSpace(input.Code)
	if err := validateStruct(input); err != nil {
		return models.Coupon{}, err
	}
	expiration, err := parseTimestamp("expirationDate", input.ExpirationDate)
	if err != nil {
		return models.Coupon{}, err
	}
	if err := s.ensureCategory(ctx, input.CategoryID); err != nil {
		return models.Coupon{}, err
	}

	coupon := models.Coupon{
		ID:                 ids.New(),
		Title:              input.Title,
		Description:        input.Description,
		Code:               input.Code,
		DiscountPercentage: int(input.DiscountPercentage),
		ExpirationDate:     expiration,
		ImagePath:          emptyToNil(input.ImagePath),
		Status:             models.CouponStatusPending,
		BusinessID:         actor.ID,
		CategoryID:         input.CategoryID,
		CreatedAt:          s.now().UTC(),
	}
	if err := s.coupons.Create(ctx, coupon); err != nil {
		return models.Coupon{}, mapCouponError(err)
	}

	s.log.Info().Str("coupon_id", coupon.ID).Str("business_id", actor.ID).Msg("coupon submitted")
	return s.Get(ctx, coupon.ID)
}

func (s *CouponService) List(ctx context.Context, input ListCouponsInput) ([]models.Coupon, error) {
	filter := repository.CouponFilter{
		BusinessID:   strings.TrimSpace(input.BusinessID),
		CategoryID:   strings.TrimSpace(input.CategoryID),
		CategorySlug: strings.TrimSpace(input.CategorySlug),
	}

	now := s.now()
	switch status := models.CouponStatus(strings.ToUpper(strings.TrimSpace(input.Status))); {
	case status != "":
		if !status.Valid() {
			return nil, fieldError("status", "oneof")
		}
		filter.Status = &status
		if status == models.CouponStatusApproved {
			filter.UnexpiredAt = &now
		}
	case filter.BusinessID == "":
		approved := models.CouponStatusApproved
		filter.Status = &approved
		filter.UnexpiredAt = &now
	}

	if input.Limit != "" {
		limit, err := strconv.Atoi(strings.TrimSpace(input.Limit))
		if err != nil || limit <= 0 {
			return nil, fieldError("limit", "min")
		}
		filter.Limit = min(limit, repository.MaxListLimit)
	}

	coupons, err := s.coupons.List(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return coupons, nil
}

// ListPending is the moderation queue, oldest submission first.
func (s *CouponService) ListPending(ctx context.Context, actor *models.User) ([]models.Coupon, error) {
	if err := Authorize(actor, models.UserRoleAdmin); err != nil {
		return nil, err
	}
	pending := models.CouponStatusPending
	coupons, err := s.coupons.List(ctx, repository.CouponFilter{Status: &pending, OldestFirst: true})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return coupons, nil
}

func (s *CouponService) Get(ctx context.Context, id string) (models.Coupon, error) {
	coupon, err := s.coupons.GetByID(ctx, id)
	if err != nil {
		return models.Coupon{}, mapCouponError(err)
	}
	return coupon, nil
}

// Update applies a partial edit. Content edits leave the status alone; an
// explicit status is accepted from administrators, while owners may only
// send their coupon back to PENDING.
func (s *CouponService) Update(ctx context.Context, actor *models.User, id string, input UpdateCouponInput) (models.Coupon, error) {
	if err := Authorize(actor); err != nil {
		return models.Coupon{}, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return models.Coupon{}, err
	}
	if !canManage(actor, current) {
		return models.Coupon{}, apperr.Forbidden()
	}

	input.Title = trimPtr(input.Title)
	input.Description = trimPtr(input.Description)
	input.Code = trimPtr(input.Code)
	if err := validateStruct(input); err != nil {
		return models.Coupon{}, err
	}

	patch := models.CouponPatch{
		Title:       input.Title,
		Description: input.Description,
		Code:        input.Code,
		ImagePath:   input.ImagePath,
		CategoryID:  input.CategoryID,
	}
	if input.DiscountPercentage != nil {
		discount := int(*input.DiscountPercentage)
		patch.DiscountPercentage = &discount
	}
	if input.ExpirationDate != nil {
		expiration, err := parseTimestamp("expirationDate", *input.ExpirationDate)
		if err != nil {
			return models.Coupon{}, err
		}
		patch.ExpirationDate = &expiration
	}
	if input.CategoryID != nil {
		if err := s.ensureCategory(ctx, *input.CategoryID); err != nil {
			return models.Coupon{}, err
		}
	}
	if input.Status != nil {
		status := models.CouponStatus(strings.ToUpper(string(*input.Status)))
		if !status.Valid() {
			return models.Coupon{}, fieldError("status", "oneof")
		}
		if actor.Role != models.UserRoleAdmin && status != models.CouponStatusPending {
			return models.Coupon{}, apperr.New(apperr.KindForbidden, apperr.MsgStatusForbidden)
		}
		patch.Status = &status
	}

	if patch.Empty() {
		return current, nil
	}

	updated, err := s.coupons.Update(ctx, id, patch)
	if err != nil {
		return models.Coupon{}, mapCouponError(err)
	}
	s.recordTransition(current.Status, updated.Status)
	return updated, nil
}

func (s *CouponService) Delete(ctx context.Context, actor *models.User, id string) error {
	if err := Authorize(actor); err != nil {
		return err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(actor, current) {
		return apperr.Forbidden()
	}
	if err := s.coupons.Delete(ctx, id); err != nil {
		return mapCouponError(err)
	}
	s.log.Info().Str("coupon_id", id).Str("actor_id", actor.ID).Msg("coupon deleted")
	return nil
}

// Decide records a moderation outcome. Only the status changes.
func (s *CouponService) Decide(ctx context.Context, actor *models.User, id string, decision models.CouponStatus) (models.Coupon, error) {
	if err := Authorize(actor, models.UserRoleAdmin); err != nil {
		return models.Coupon{}, err
	}
	decision = models.CouponStatus(strings.ToUpper(string(decision)))
	if decision != models.CouponStatusApproved && decision != models.CouponStatusRejected {
		return models.Coupon{}, apperr.New(apperr.KindValidation, apperr.MsgInvalidDecision).
			With("field", "status")
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return models.Coupon{}, err
	}
	updated, err := s.coupons.SetStatus(ctx, id, decision)
	if err != nil {
		return models.Coupon{}, mapCouponError(err)
	}

	s.recordTransition(current.Status, updated.Status)
	s.log.Info().
		Str("coupon_id", id).
		Str("from", string(current.Status)).
		Str("to", string(updated.Status)).
		Str("admin_id", actor.ID).
		Msg("coupon moderated")
	return updated, nil
}

// Resubmit puts the owner's coupon back into the moderation queue.
func (s *CouponService) Resubmit(ctx context.Context, actor *models.User, id string) (models.Coupon, error) {
	if err := Authorize(actor); err != nil {
		return models.Coupon{}, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return models.Coupon{}, err
	}
	if current.BusinessID != actor.ID {
		return models.Coupon{}, apperr.Forbidden()
	}

	updated, err := s.coupons.SetStatus(ctx, id, models.CouponStatusPending)
	if err != nil {
		return models.Coupon{}, mapCouponError(err)
	}
	s.recordTransition(current.Status, updated.Status)
	return updated, nil
}

func (s *CouponService) ensureCategory(ctx context.Context, categoryID string) error {
	if _, err := s.categories.GetByID(ctx, categoryID); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return fieldError("categoryId", "exists")
		}
		return apperr.Internal(err)
	}
	return nil
}

func (s *CouponService) recordTransition(from, to models.CouponStatus) {
	if from != to {
		s.metrics.CouponTransition(string(from), string(to))
	}
}

func canManage(actor *models.User, coupon models.Coupon) bool {
	return actor.Role == models.UserRoleAdmin || coupon.BusinessID == actor.ID
}

func mapCouponError(err error) error {
	switch {
	case errors.Is(err, repository.ErrCouponNotFound):
		return apperr.NotFound(apperr.MsgCouponNotFound)
	case errors.Is(err, repository.ErrCategoryNotFound):
		return fieldError("categoryId", "exists")
	default:
		return apperr.Internal(fmt.Errorf("coupon store: %w", err))
	}
}

func emptyToNil(value *string) *string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}
