package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/specs-nexus-api/pkg/errors"
	"github.com/noah-isme/specs-nexus-api/pkg/storage"
)

type objectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

// UploadConfig bounds accepted uploads.
type UploadConfig struct {
	MaxFileSizeBytes  int64
	ImageMaxDimension int
}

// UploadService validates images and writes them to object storage.
type UploadService struct {
	store   objectStore
	cfg     UploadConfig
	metrics *MetricsService
	logger  *zap.Logger
}

// NewUploadService constructs the service.
func NewUploadService(store objectStore, cfg UploadConfig, metrics *MetricsService, logger *zap.Logger) *UploadService {
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 10 << 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadService{store: store, cfg: cfg, metrics: metrics, logger: logger}
}

// UploadImage stores an image under folder and returns its public URL. The
// content type is sniffed from the bytes. When fit is set the image is
// downscaled to the configured maximum dimension first.
func (s *UploadService) UploadImage(ctx context.Context, folder, filename string, r io.Reader, fit bool) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxFileSizeBytes+1))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrBadRequest.Code, appErrors.ErrBadRequest.Status, "failed to read upload")
	}
	if len(data) == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "uploaded file is empty")
	}
	if int64(len(data)) > s.cfg.MaxFileSizeBytes {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds maximum size of %d bytes", s.cfg.MaxFileSizeBytes))
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return "", appErrors.Clone(appErrors.ErrValidation, "only image uploads are allowed")
	}

	if fit {
		resized, resizedType, ok, err := storage.FitImage(data, s.cfg.ImageMaxDimension)
		if err != nil {
			s.logger.Warn("image downscale failed, storing original", zap.String("filename", filename), zap.Error(err))
		} else if ok {
			data = resized
			contentType = resizedType
		}
	}

	key := storage.ObjectKey(folder, filename)
	start := time.Now()
	url, err := s.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
	s.metrics.ObserveUpstream("storage", time.Since(start), err)
	if err != nil {
		s.logger.Error("object storage upload failed", zap.String("key", key), zap.Error(err))
		return "", appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to upload file")
	}
	return url, nil
}
