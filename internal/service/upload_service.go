package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"time"

	"github.com/rs/zerolog"

	"couponme/api/internal/apperr"
	"couponme/api/internal/config"
	"couponme/api/internal/ids"
	"couponme/api/internal/media/sniffer"
	"couponme/api/internal/models"
	"couponme/api/internal/storage"
)

const orphanBatchSize = 100

var allowedUploadTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

type UploadInput struct {
	File   multipart.File
	Header *multipart.FileHeader
}

type UploadResult struct {
	Upload models.Upload
	URL    string
}

type UploadService struct {
	uploads UploadStore
	store   storage.ObjectStore
	cfg     config.UploadConfig
	log     zerolog.Logger
	now     Clock
}

func NewUploadService(uploads UploadStore, store storage.ObjectStore, cfg config.UploadConfig, log zerolog.Logger) *UploadService {
	return &UploadService{
		uploads: uploads,
		store:   store,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
}

// Upload stores a coupon image after checking the declared type, the size
// limit and the file's magic bytes.
func (s *UploadService) Upload(ctx context.Context, actor *models.User, input UploadInput) (UploadResult, error) {
	if err := Authorize(actor, models.UserRoleBusiness, models.UserRoleAdmin); err != nil {
		return UploadResult{}, err
	}
	if input.File == nil || input.Header == nil {
		return UploadResult{}, apperr.New(apperr.KindValidation, apperr.MsgFileRequired).With("field", "file")
	}

	declared := sniffer.MimeTypeFromHTTP(http.Header(input.Header.Header))
	if !allowedUploadTypes[declared] {
		return UploadResult{}, apperr.New(apperr.KindValidation, apperr.MsgFileTypeNotAllowed).With("field", "file")
	}
	if input.Header.Size > s.cfg.MaxBytes {
		return UploadResult{}, s.tooLarge()
	}

	// One extra byte tells an oversized stream apart from an exact fit.
	data, err := io.ReadAll(io.LimitReader(input.File, s.cfg.MaxBytes+1))
	if err != nil {
		return UploadResult{}, apperr.Internal(fmt.Errorf("read file: %w", err))
	}
	if int64(len(data)) > s.cfg.MaxBytes {
		return UploadResult{}, s.tooLarge()
	}
	if len(data) == 0 {
		return UploadResult{}, apperr.New(apperr.KindValidation, apperr.MsgFileRequired).With("field", "file")
	}

	result, err := sniffer.DetectHead(data[:min(len(data), sniffer.HeadSize)])
	if err != nil || result.MIME != declared {
		return UploadResult{}, apperr.New(apperr.KindValidation, apperr.MsgFileTypeNotAllowed).With("field", "file")
	}

	now := s.now().UTC()
	uploadID := ids.New()
	objectKey := s.buildObjectKey(now, uploadID, string(result.Type))

	if err := s.store.Put(ctx, objectKey, bytes.NewReader(data), int64(len(data)), result.MIME); err != nil {
		return UploadResult{}, apperr.Internal(fmt.Errorf("put object: %w", err))
	}

	upload := models.Upload{
		ID:          uploadID,
		UserID:      actor.ID,
		ObjectKey:   objectKey,
		URL:         s.store.PublicURL(objectKey),
		ContentType: result.MIME,
		SizeBytes:   int64(len(data)),
		CreatedAt:   now,
	}
	if err := s.uploads.Create(ctx, upload); err != nil {
		if rmErr := s.store.Remove(ctx, objectKey); rmErr != nil {
			s.log.Warn().Err(rmErr).Str("object_key", objectKey).Msg("remove object after failed save")
		}
		return UploadResult{}, apperr.Internal(fmt.Errorf("save upload: %w", err))
	}

	s.log.Info().Str("upload_id", upload.ID).Str("user_id", actor.ID).Int64("size", upload.SizeBytes).Msg("image uploaded")
	return UploadResult{Upload: upload, URL: upload.URL}, nil
}

// PurgeOrphans removes uploads older than olderThan that no coupon refers to.
func (s *UploadService) PurgeOrphans(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.now().UTC().Add(-olderThan)
	removed := 0
	for {
		orphans, err := s.uploads.ListOrphans(ctx, cutoff, orphanBatchSize)
		if err != nil {
			return removed, fmt.Errorf("list orphan uploads: %w", err)
		}
		if len(orphans) == 0 {
			return removed, nil
		}
		for _, upload := range orphans {
			if err := s.store.Remove(ctx, upload.ObjectKey); err != nil {
				return removed, fmt.Errorf("remove object %s: %w", upload.ObjectKey, err)
			}
			if err := s.uploads.Delete(ctx, upload.ID); err != nil {
				return removed, fmt.Errorf("delete upload %s: %w", upload.ID, err)
			}
			removed++
		}
		if len(orphans) < orphanBatchSize {
			return removed, nil
		}
		if err := ctx.Err(); err != nil {
			return removed, err
		}
	}
}

func (s *UploadService) tooLarge() error {
	return apperr.New(apperr.KindValidation, apperr.MsgFileTooLarge).
		With("field", "file").
		With("max", s.cfg.MaxBytes)
}

func (s *UploadService) buildObjectKey(now time.Time, uploadID string, ext string) string {
	return path.Join(s.cfg.Prefix, now.Format("2006/01/02"), fmt.Sprintf("%s.%s", uploadID, ext))
}
