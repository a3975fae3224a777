package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/specs-nexus-api/pkg/errors"
	"github.com/noah-isme/specs-nexus-api/pkg/storage"
)

type mockObjectStore struct {
	key         string
	contentType string
	data        []byte
	err         error
}

func (m *mockObjectStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	data, _ := io.ReadAll(r)
	m.key = key
	m.contentType = contentType
	m.data = data
	return "https://cdn.example.com/" + key, nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func TestUploadImageStoresUnderFolder(t *testing.T) {
	store := &mockObjectStore{}
	svc := NewUploadService(store, UploadConfig{MaxFileSizeBytes: 1 << 20}, nil, nil)

	url, err := svc.UploadImage(context.Background(), storage.FolderReceipts, "my receipt.png", bytes.NewReader(pngBytes(t, 4, 4)), false)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(store.key, "receipts/"))
	assert.True(t, strings.HasSuffix(store.key, "_my_receipt.png"))
	assert.Equal(t, "image/png", store.contentType)
	assert.Equal(t, "https://cdn.example.com/"+store.key, url)
}

func TestUploadImageRejectsNonImage(t *testing.T) {
	svc := NewUploadService(&mockObjectStore{}, UploadConfig{MaxFileSizeBytes: 1 << 20}, nil, nil)
	_, err := svc.UploadImage(context.Background(), storage.FolderReceipts, "receipt.png", strings.NewReader("%PDF-1.4 not an image"), false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
}

func TestUploadImageRejectsOversize(t *testing.T) {
	data := pngBytes(t, 8, 8)
	svc := NewUploadService(&mockObjectStore{}, UploadConfig{MaxFileSizeBytes: int64(len(data) - 1)}, nil, nil)
	_, err := svc.UploadImage(context.Background(), storage.FolderQRCodes, "qr.png", bytes.NewReader(data), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum size")
}

func TestUploadImageDownscales(t *testing.T) {
	store := &mockObjectStore{}
	svc := NewUploadService(store, UploadConfig{MaxFileSizeBytes: 1 << 20, ImageMaxDimension: 10}, nil, nil)

	_, err := svc.UploadImage(context.Background(), storage.FolderEventImages, "banner.png", bytes.NewReader(pngBytes(t, 40, 20)), true)
	require.NoError(t, err)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(store.data))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Width)
	assert.Equal(t, 5, cfg.Height)
}

func TestUploadImageStorageFailure(t *testing.T) {
	svc := NewUploadService(&mockObjectStore{err: errors.New("bucket unreachable")}, UploadConfig{}, nil, nil)
	_, err := svc.UploadImage(context.Background(), storage.FolderReceipts, "r.png", bytes.NewReader(pngBytes(t, 2, 2)), false)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, 500, appErr.Status)
	assert.Equal(t, "failed to upload file", appErr.Message)
}
