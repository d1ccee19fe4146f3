package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"couponme/api/internal/models"
)

const couponSelect = `
	SELECT c.id, c.title, c.description, c.code, c.discount_percentage, c.expiration_date,
	       c.image_path, c.status, c.business_id, c.category_id, c.created_at, c.updated_at,
	       u.name, u.email,
	       cat.name_en, cat.name_el, cat.slug, cat.created_at, cat.updated_at
	FROM coupons c
	JOIN users u ON u.id = c.business_id
	JOIN categories cat ON cat.id = c.category_id
`

type CouponRepository struct {
	pool *pgxpool.Pool
}

func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

func scanCoupon(row pgx.Row) (models.Coupon, error) {
	var (
		coupon   models.Coupon
		business models.BusinessSummary
		category models.Category
	)
	if err := row.Scan(
		&coupon.ID,
		&coupon.Title,
		&coupon.Description,
		&coupon.Code,
		&coupon.DiscountPercentage,
		&coupon.ExpirationDate,
		&coupon.ImagePath,
		&coupon.Status,
		&coupon.BusinessID,
		&coupon.CategoryID,
		&coupon.CreatedAt,
		&coupon.UpdatedAt,
		&business.Name,
		&business.Email,
		&category.NameEn,
		&category.NameEl,
		&category.Slug,
		&category.CreatedAt,
		&category.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Coupon{}, ErrCouponNotFound
		}
		return models.Coupon{}, err
	}
	business.ID = coupon.BusinessID
	category.ID = coupon.CategoryID
	coupon.Business = &business
	coupon.Category = &category
	return coupon, nil
}

func (r *CouponRepository) Create(ctx context.Context, coupon models.Coupon) error {
	const query = `
		INSERT INTO coupons (
			id, title, description, code, discount_percentage, expiration_date, image_path,
			status, business_id, category_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11
		)
	`

	_, err := r.pool.Exec(ctx, query,
		coupon.ID,
		coupon.Title,
		coupon.Description,
		coupon.Code,
		coupon.DiscountPercentage,
		coupon.ExpirationDate,
		coupon.ImagePath,
		coupon.Status,
		coupon.BusinessID,
		coupon.CategoryID,
		coupon.CreatedAt,
	)
	if isForeignKeyViolation(err) {
		return ErrCategoryNotFound
	}
	return err
}

func (r *CouponRepository) GetByID(ctx context.Context, id string) (models.Coupon, error) {
	return scanCoupon(r.pool.QueryRow(ctx, couponSelect+` WHERE c.id = $1`, id))
}

func (r *CouponRepository) List(ctx context.Context, filter CouponFilter) ([]models.Coupon, error) {
	conds := make([]string, 0, 5)
	args := make([]any, 0, 6)
	where := func(expr string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}

	if filter.Status != nil {
		where("c.status = $%d", *filter.Status)
	}
	if filter.BusinessID != "" {
		where("c.business_id = $%d", filter.BusinessID)
	}
	if filter.CategoryID != "" {
		where("c.category_id = $%d", filter.CategoryID)
	}
	if filter.CategorySlug != "" {
		where("cat.slug = $%d", filter.CategorySlug)
	}
	if filter.UnexpiredAt != nil {
		where("c.expiration_date >= $%d", *filter.UnexpiredAt)
	}

	var sb strings.Builder
	sb.WriteString(couponSelect)
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	if filter.OldestFirst {
		sb.WriteString(" ORDER BY c.created_at ASC, c.id ASC")
	} else {
		sb.WriteString(" ORDER BY c.created_at DESC, c.id DESC")
	}
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	coupons := make([]models.Coupon, 0)
	for rows.Next() {
		coupon, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, coupon)
	}
	return coupons, rows.Err()
}

func (r *CouponRepository) Update(ctx context.Context, id string, patch models.CouponPatch) (models.Coupon, error) {
	sets := make([]string, 0, 9)
	args := []any{id}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Code != nil {
		add("code", *patch.Code)
	}
	if patch.DiscountPercentage != nil {
		add("discount_percentage", *patch.DiscountPercentage)
	}
	if patch.ExpirationDate != nil {
		add("expiration_date", *patch.ExpirationDate)
	}
	if patch.ImagePath != nil {
		if *patch.ImagePath == "" {
			sets = append(sets, "image_path = NULL")
		} else {
			add("image_path", *patch.ImagePath)
		}
	}
	if patch.CategoryID != nil {
		add("category_id", *patch.CategoryID)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}
	sets = append(sets, "updated_at = NOW()")

	query := `UPDATE coupons SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		if isForeignKeyViolation(err) {
			return models.Coupon{}, ErrCategoryNotFound
		}
		return models.Coupon{}, err
	}
	if cmd.RowsAffected() == 0 {
		return models.Coupon{}, ErrCouponNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *CouponRepository) SetStatus(ctx context.Context, id string, status models.CouponStatus) (models.Coupon, error) {
	return r.Update(ctx, id, models.CouponPatch{Status: &status})
}

func (r *CouponRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM coupons WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCouponNotFound
	}
	return nil
}

func (r *CouponRepository) Count(ctx context.Context, status *models.CouponStatus) (int, error) {
	var count int
	var err error
	if status == nil {
		err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM coupons`).Scan(&count)
	} else {
		err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM coupons WHERE status = $1`, *status).Scan(&count)
	}
	return count, err
}
