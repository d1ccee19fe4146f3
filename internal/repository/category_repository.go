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

const (
	categoryColumns        = `id, name_en, name_el, slug, created_at, updated_at`
	categorySlugConstraint = "categories_slug_key"
)

type CategoryRepository struct {
	pool *pgxpool.Pool
}

func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

func scanCategory(row pgx.Row) (models.Category, error) {
	var category models.Category
	if err := row.Scan(
		&category.ID,
		&category.NameEn,
		&category.NameEl,
		&category.Slug,
		&category.CreatedAt,
		&category.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Category{}, ErrCategoryNotFound
		}
		return models.Category{}, err
	}
	return category, nil
}

func (r *CategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name_en ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]models.Category, 0)
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

func (r *CategoryRepository) GetByID(ctx context.Context, id string) (models.Category, error) {
	return scanCategory(r.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
}

func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (models.Category, error) {
	return scanCategory(r.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE slug = $1`, slug))
}

func (r *CategoryRepository) Create(ctx context.Context, category models.Category) error {
	const query = `
		INSERT INTO categories (id, name_en, name_el, slug, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
	`
	_, err := r.pool.Exec(ctx, query, category.ID, category.NameEn, category.NameEl, category.Slug)
	if isUniqueViolation(err, categorySlugConstraint) {
		return ErrDuplicateSlug
	}
	return err
}

func (r *CategoryRepository) Update(ctx context.Context, id string, patch models.CategoryPatch) (models.Category, error) {
	sets := make([]string, 0, 4)
	args := []any{id}
	add := func(column string, value string) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.NameEn != nil {
		add("name_en", *patch.NameEn)
	}
	if patch.NameEl != nil {
		add("name_el", *patch.NameEl)
	}
	if patch.Slug != nil {
		add("slug", *patch.Slug)
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}
	sets = append(sets, "updated_at = NOW()")

	query := `UPDATE categories SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + categoryColumns
	category, err := scanCategory(r.pool.QueryRow(ctx, query, args...))
	if isUniqueViolation(err, categorySlugConstraint) {
		return models.Category{}, ErrDuplicateSlug
	}
	return category, err
}

// Delete removes the category only when no coupon references it. The check
// and the delete run as one statement; the outer SELECT reads the snapshot
// taken before the delete.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	const query = `
		WITH deleted AS (
			DELETE FROM categories
			WHERE id = $1
			  AND NOT EXISTS (SELECT 1 FROM coupons WHERE category_id = $1)
			RETURNING id
		)
		SELECT
			(SELECT COUNT(*) FROM deleted),
			(SELECT COUNT(*) FROM categories WHERE id = $1),
			(SELECT COUNT(*) FROM coupons WHERE category_id = $1)
	`

	var deleted, existing, references int
	if err := r.pool.QueryRow(ctx, query, id).Scan(&deleted, &existing, &references); err != nil {
		if isForeignKeyViolation(err) {
			if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM coupons WHERE category_id = $1`, id).Scan(&references); err != nil {
				return err
			}
			return &CategoryInUseError{Count: references}
		}
		return err
	}
	switch {
	case deleted > 0:
		return nil
	case existing == 0:
		return ErrCategoryNotFound
	default:
		return &CategoryInUseError{Count: references}
	}
}
