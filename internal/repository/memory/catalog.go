package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"couponme/api/internal/models"
	"couponme/api/internal/repository"
)

type CategoryRepository struct{ s *Store }

func (r *CategoryRepository) List(_ context.Context) ([]models.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	categories := make([]models.Category, 0, len(r.s.categories))
	for _, category := range r.s.categories {
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool {
		return strings.ToLower(categories[i].NameEn) < strings.ToLower(categories[j].NameEn)
	})
	return categories, nil
}

func (r *CategoryRepository) GetByID(_ context.Context, id string) (models.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	category, ok := r.s.categories[id]
	if !ok {
		return models.Category{}, repository.ErrCategoryNotFound
	}
	return category, nil
}

func (r *CategoryRepository) GetBySlug(_ context.Context, slug string) (models.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, category := range r.s.categories {
		if category.Slug == slug {
			return category, nil
		}
	}
	return models.Category{}, repository.ErrCategoryNotFound
}

func (r *CategoryRepository) Create(_ context.Context, category models.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.slugTaken(category.Slug, "") {
		return repository.ErrDuplicateSlug
	}
	now := r.s.now()
	category.CreatedAt, category.UpdatedAt = now, now
	r.s.categories[category.ID] = category
	r.s.track(category.ID)
	return nil
}

func (r *CategoryRepository) Update(_ context.Context, id string, patch models.CategoryPatch) (models.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	category, ok := r.s.categories[id]
	if !ok {
		return models.Category{}, repository.ErrCategoryNotFound
	}
	if patch.Slug != nil {
		if r.s.slugTaken(*patch.Slug, id) {
			return models.Category{}, repository.ErrDuplicateSlug
		}
		category.Slug = *patch.Slug
	}
	if patch.NameEn != nil {
		category.NameEn = *patch.NameEn
	}
	if patch.NameEl != nil {
		category.NameEl = *patch.NameEl
	}
	category.UpdatedAt = r.s.now()
	r.s.categories[id] = category
	return category, nil
}

func (r *CategoryRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.categories[id]; !ok {
		return repository.ErrCategoryNotFound
	}
	references := 0
	for _, coupon := range r.s.coupons {
		if coupon.CategoryID == id {
			references++
		}
	}
	if references > 0 {
		return &repository.CategoryInUseError{Count: references}
	}
	delete(r.s.categories, id)
	return nil
}

func (s *Store) slugTaken(slug, exceptID string) bool {
	for id, category := range s.categories {
		if id != exceptID && category.Slug == slug {
			return true
		}
	}
	return false
}

type CouponRepository struct{ s *Store }

func (r *CouponRepository) Create(_ context.Context, coupon models.Coupon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.categories[coupon.CategoryID]; !ok {
		return repository.ErrCategoryNotFound
	}
	if _, ok := r.s.users[coupon.BusinessID]; !ok {
		return repository.ErrUserNotFound
	}
	if coupon.CreatedAt.IsZero() {
		coupon.CreatedAt = r.s.now()
	}
	coupon.UpdatedAt = coupon.CreatedAt
	coupon.Business, coupon.Category = nil, nil
	r.s.coupons[coupon.ID] = coupon
	r.s.track(coupon.ID)
	return nil
}

func (r *CouponRepository) GetByID(_ context.Context, id string) (models.Coupon, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	coupon, ok := r.s.coupons[id]
	if !ok {
		return models.Coupon{}, repository.ErrCouponNotFound
	}
	return r.s.expand(coupon), nil
}

func (r *CouponRepository) List(_ context.Context, filter repository.CouponFilter) ([]models.Coupon, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	coupons := make([]models.Coupon, 0)
	for _, coupon := range r.s.coupons {
		if filter.Status != nil && coupon.Status != *filter.Status {
			continue
		}
		if filter.BusinessID != "" && coupon.BusinessID != filter.BusinessID {
			continue
		}
		if filter.CategoryID != "" && coupon.CategoryID != filter.CategoryID {
			continue
		}
		if filter.CategorySlug != "" && r.s.categories[coupon.CategoryID].Slug != filter.CategorySlug {
			continue
		}
		if filter.UnexpiredAt != nil && coupon.ExpirationDate.Before(*filter.UnexpiredAt) {
			continue
		}
		coupons = append(coupons, r.s.expand(coupon))
	}

	sort.Slice(coupons, func(i, j int) bool {
		a, b := coupons[i], coupons[j]
		newer := a.CreatedAt.After(b.CreatedAt)
		if a.CreatedAt.Equal(b.CreatedAt) {
			newer = r.s.seq[a.ID] > r.s.seq[b.ID]
		}
		if filter.OldestFirst {
			return !newer
		}
		return newer
	})

	if filter.Limit > 0 && len(coupons) > filter.Limit {
		coupons = coupons[:filter.Limit]
	}
	return coupons, nil
}

func (r *CouponRepository) Update(_ context.Context, id string, patch models.CouponPatch) (models.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	coupon, ok := r.s.coupons[id]
	if !ok {
		return models.Coupon{}, repository.ErrCouponNotFound
	}
	if patch.CategoryID != nil {
		if _, ok := r.s.categories[*patch.CategoryID]; !ok {
			return models.Coupon{}, repository.ErrCategoryNotFound
		}
		coupon.CategoryID = *patch.CategoryID
	}
	if patch.Title != nil {
		coupon.Title = *patch.Title
	}
	if patch.Description != nil {
		coupon.Description = *patch.Description
	}
	if patch.Code != nil {
		coupon.Code = *patch.Code
	}
	if patch.DiscountPercentage != nil {
		coupon.DiscountPercentage = *patch.DiscountPercentage
	}
	if patch.ExpirationDate != nil {
		coupon.ExpirationDate = *patch.ExpirationDate
	}
	if patch.ImagePath != nil {
		if *patch.ImagePath == "" {
			coupon.ImagePath = nil
		} else {
			path := *patch.ImagePath
			coupon.ImagePath = &path
		}
	}
	if patch.Status != nil {
		coupon.Status = *patch.Status
	}
	coupon.UpdatedAt = r.s.now()
	r.s.coupons[id] = coupon
	return r.s.expand(coupon), nil
}

func (r *CouponRepository) SetStatus(ctx context.Context, id string, status models.CouponStatus) (models.Coupon, error) {
	return r.Update(ctx, id, models.CouponPatch{Status: &status})
}

func (r *CouponRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.coupons[id]; !ok {
		return repository.ErrCouponNotFound
	}
	delete(r.s.coupons, id)
	return nil
}

func (r *CouponRepository) Count(_ context.Context, status *models.CouponStatus) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if status == nil {
		return len(r.s.coupons), nil
	}
	count := 0
	for _, coupon := range r.s.coupons {
		if coupon.Status == *status {
			count++
		}
	}
	return count, nil
}

func (s *Store) expand(coupon models.Coupon) models.Coupon {
	if user, ok := s.users[coupon.BusinessID]; ok {
		coupon.Business = &models.BusinessSummary{ID: user.ID, Name: user.Name, Email: user.Email}
	}
	if category, ok := s.categories[coupon.CategoryID]; ok {
		coupon.Category = &category
	}
	return coupon
}

type UploadRepository struct{ s *Store }

func (r *UploadRepository) Create(_ context.Context, upload models.Upload) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if upload.CreatedAt.IsZero() {
		upload.CreatedAt = r.s.now()
	}
	r.s.uploads[upload.ID] = upload
	r.s.track(upload.ID)
	return nil
}

func (r *UploadRepository) ListOrphans(_ context.Context, before time.Time, limit int) ([]models.Upload, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	used := make(map[string]struct{})
	for _, coupon := range r.s.coupons {
		if coupon.ImagePath != nil {
			used[*coupon.ImagePath] = struct{}{}
		}
	}

	orphans := make([]models.Upload, 0)
	for _, upload := range r.s.uploads {
		if !upload.CreatedAt.Before(before) {
			continue
		}
		if _, ok := used[upload.URL]; ok {
			continue
		}
		orphans = append(orphans, upload)
	}
	sort.Slice(orphans, func(i, j int) bool {
		return orphans[i].CreatedAt.Before(orphans[j].CreatedAt)
	})
	if limit > 0 && len(orphans) > limit {
		orphans = orphans[:limit]
	}
	return orphans, nil
}

func (r *UploadRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.uploads[id]; !ok {
		return repository.ErrUploadNotFound
	}
	delete(r.s.uploads, id)
	return nil
}
