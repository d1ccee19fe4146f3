package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"couponme/api/internal/models"
)

type UploadRepository struct {
	pool *pgxpool.Pool
}

func NewUploadRepository(pool *pgxpool.Pool) *UploadRepository {
	return &UploadRepository{pool: pool}
}

func (r *UploadRepository) Create(ctx context.Context, upload models.Upload) error {
	const query = `
		INSERT INTO uploads (id, user_id, object_key, url, content_type, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		upload.ID,
		upload.UserID,
		upload.ObjectKey,
		upload.URL,
		upload.ContentType,
		upload.SizeBytes,
		upload.CreatedAt,
	)
	return err
}

// ListOrphans returns uploads created before the cutoff that no coupon uses as its image.
func (r *UploadRepository) ListOrphans(ctx context.Context, before time.Time, limit int) ([]models.Upload, error) {
	const query = `
		SELECT u.id, u.user_id, u.object_key, u.url, u.content_type, u.size_bytes, u.created_at
		FROM uploads u
		WHERE u.created_at < $1
		  AND NOT EXISTS (SELECT 1 FROM coupons c WHERE c.image_path = u.url)
		ORDER BY u.created_at ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	uploads := make([]models.Upload, 0)
	for rows.Next() {
		var upload models.Upload
		if err := rows.Scan(
			&upload.ID,
			&upload.UserID,
			&upload.ObjectKey,
			&upload.URL,
			&upload.ContentType,
			&upload.SizeBytes,
			&upload.CreatedAt,
		); err != nil {
			return nil, err
		}
		uploads = append(uploads, upload)
	}
	return uploads, rows.Err()
}

func (r *UploadRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM uploads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUploadNotFound
	}
	return nil
}
