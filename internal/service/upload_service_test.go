package service

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"couponme/api/internal/apperr"
	"couponme/api/internal/config"
	"couponme/api/internal/storage"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type memFile struct {
	*bytes.Reader
}

func (memFile) Close() error { return nil }

func fileInput(data []byte, contentType string) UploadInput {
	header := &multipart.FileHeader{
		Filename: "image",
		Header:   textproto.MIMEHeader{"Content-Type": {contentType}},
		Size:     int64(len(data)),
	}
	return UploadInput{File: memFile{bytes.NewReader(data)}, Header: header}
}

func (f *fixture) uploads(t *testing.T, maxBytes int64) (*UploadService, *storage.LocalStore) {
	t.Helper()
	store := storage.NewLocalStore(t.TempDir(), "/uploads")
	svc := NewUploadService(f.store.Uploads(), store, config.UploadConfig{MaxBytes: maxBytes, Prefix: "coupons"}, zerolog.Nop())
	svc.now = f.clock
	return svc, store
}

func TestUploadStoresImage(t *testing.T) {
	f := newFixture(t)
	svc, store := f.uploads(t, 1024)

	result, err := svc.Upload(context.Background(), &f.business, fileInput(pngHeader, "image/png"))
	require.NoError(t, err)
	assert.Regexp(t, `^/uploads/coupons/2025/03/01/[0-9A-Za-z]+\.png$`, result.URL)

	stored, err := os.ReadFile(filepath.Join(store.Dir(), filepath.FromSlash(result.Upload.ObjectKey)))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, stored)
}

func TestUploadRejections(t *testing.T) {
	f := newFixture(t)
	svc, _ := f.uploads(t, 32)
	ctx := context.Background()

	_, err := svc.Upload(ctx, &f.user, fileInput(pngHeader, "image/png"))
	requireKind(t, err, apperr.KindForbidden)

	_, err = svc.Upload(ctx, &f.business, UploadInput{})
	requireKind(t, err, apperr.KindValidation)

	_, err = svc.Upload(ctx, &f.business, fileInput(pngHeader, "image/gif"))
	requireKind(t, err, apperr.KindValidation)

	_, err = svc.Upload(ctx, &f.business, fileInput(pngHeader, "image/jpeg"))
	requireKind(t, err, apperr.KindValidation)

	_, err = svc.Upload(ctx, &f.business, fileInput([]byte("plain text pretending"), "image/png"))
	requireKind(t, err, apperr.KindValidation)

	large := append(append([]byte{}, pngHeader...), make([]byte, 64)...)
	_, err = svc.Upload(ctx, &f.business, fileInput(large, "image/png"))
	requireKind(t, err, apperr.KindValidation)
	appErr, _ := apperr.As(err)
	assert.Equal(t, apperr.MsgFileTooLarge, appErr.MessageID)
}

func TestPurgeOrphans(t *testing.T) {
	f := newFixture(t)
	svc, store := f.uploads(t, 1024)
	coupons := f.coupons()
	ctx := context.Background()

	orphan, err := svc.Upload(ctx, &f.business, fileInput(pngHeader, "image/png"))
	require.NoError(t, err)
	used, err := svc.Upload(ctx, &f.business, fileInput(pngHeader, "image/png"))
	require.NoError(t, err)

	input := f.couponInput("Spring sale")
	input.ImagePath = &used.URL
	_, err = coupons.Create(ctx, &f.business, input)
	require.NoError(t, err)

	removed, err := svc.PurgeOrphans(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed, "recent uploads are kept")

	f.now = f.now.Add(2 * time.Hour)
	removed, err = svc.PurgeOrphans(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(filepath.Join(store.Dir(), filepath.FromSlash(orphan.Upload.ObjectKey)))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(store.Dir(), filepath.FromSlash(used.Upload.ObjectKey)))
	assert.NoError(t, err)
}
