package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/specs-nexus-api/internal/dto"
	"github.com/noah-isme/specs-nexus-api/internal/models"
	appErrors "github.com/noah-isme/specs-nexus-api/pkg/errors"
	"github.com/noah-isme/specs-nexus-api/pkg/storage"
)

type announcementRepository interface {
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, error)
	FindByID(ctx context.Context, id int64) (*models.Announcement, error)
	Create(ctx context.Context, announcement *models.Announcement) error
	Update(ctx context.Context, announcement *models.Announcement) error
	Archive(ctx context.Context, id int64) error
}

// AnnouncementService handles announcement workflows.
type AnnouncementService struct {
	repo      announcementRepository
	uploader  imageUploader
	validator *validator.Validate
	logger    *zap.Logger
	location  *time.Location
}

// NewAnnouncementService constructs the service.
func NewAnnouncementService(repo announcementRepository, uploader imageUploader, validate *validator.Validate, logger *zap.Logger, loc *time.Location) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AnnouncementService{repo: repo, uploader: uploader, validator: validate, logger: logger, location: loc}
}

// List returns announcements filtered by archive state. Users always see active ones.
func (s *AnnouncementService) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, error) {
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list announcements")
	}
	return rows, nil
}

// Create registers a new announcement.
func (s *AnnouncementService) Create(ctx context.Context, form dto.AnnouncementForm, image *ImageUpload) (*models.Announcement, error) {
	if err := s.validator.Struct(form); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if form.Title == nil || strings.TrimSpace(*form.Title) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title is required")
	}
	announcement := &models.Announcement{}
	if err := s.applyForm(announcement, form); err != nil {
		return nil, err
	}
	if err := s.attachImage(ctx, announcement, image); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, announcement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create announcement")
	}
	s.logger.Info("announcement created", zap.Int64("announcement_id", announcement.ID))
	return announcement, nil
}

// Update modifies an existing announcement. Absent form fields are kept.
func (s *AnnouncementService) Update(ctx context.Context, id int64, form dto.AnnouncementForm, image *ImageUpload) (*models.Announcement, error) {
	if err := s.validator.Struct(form); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load announcement")
	}
	if err := s.applyForm(existing, form); err != nil {
		return nil, err
	}
	if strings.TrimSpace(existing.Title) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title is required")
	}
	if err := s.attachImage(ctx, existing, image); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update announcement")
	}
	return existing, nil
}

// Archive hides an announcement from users.
func (s *AnnouncementService) Archive(ctx context.Context, id int64) error {
	if err := s.repo.Archive(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "Announcement not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive announcement")
	}
	return nil
}

func (s *AnnouncementService) applyForm(announcement *models.Announcement, form dto.AnnouncementForm) error {
	if form.Title != nil {
		announcement.Title = strings.TrimSpace(*form.Title)
	}
	if form.Description != nil {
		announcement.Description = *form.Description
	}
	if form.Location != nil {
		announcement.Location = strings.TrimSpace(*form.Location)
	}
	set, date, err := parseOptionalTime(form.Date, s.location)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date")
	}
	if set {
		announcement.Date = date
	}
	return nil
}

func (s *AnnouncementService) attachImage(ctx context.Context, announcement *models.Announcement, image *ImageUpload) error {
	if image == nil || image.Reader == nil {
		return nil
	}
	url, err := s.uploader.UploadImage(ctx, storage.FolderAnnouncementImages, image.Filename, image.Reader, true)
	if err != nil {
		return err
	}
	announcement.ImageURL = &url
	return nil
}
