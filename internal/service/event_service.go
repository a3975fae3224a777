package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/specs-nexus-api/internal/dto"
	"github.com/noah-isme/specs-nexus-api/internal/models"
	appErrors "github.com/noah-isme/specs-nexus-api/pkg/errors"
	"github.com/noah-isme/specs-nexus-api/pkg/storage"
)

// Participation messages returned to users.
const (
	MsgJoinedEvent        = "Successfully joined the event"
	MsgAlreadyParticipant = "Already participating in this event"
	MsgLeftEvent          = "Successfully left the event"
	MsgNotParticipant     = "You are not participating in this event"
)

type eventRepository interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
	ListForUser(ctx context.Context, userID int64) ([]models.EventView, error)
	FindByID(ctx context.Context, id int64) (*models.Event, error)
	Create(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, event *models.Event) error
	Archive(ctx context.Context, id int64) error
	AddParticipant(ctx context.Context, eventID, userID int64, joinedAt time.Time) (bool, error)
	RemoveParticipant(ctx context.Context, eventID, userID int64) (bool, error)
	CountParticipants(ctx context.Context, eventID int64) (int, error)
	Participants(ctx context.Context, eventID int64) ([]models.EventParticipant, error)
}

type imageUploader interface {
	UploadImage(ctx context.Context, folder, filename string, r io.Reader, fit bool) (string, error)
}

type cacheInvalidator interface {
	InvalidateDashboards(ctx context.Context) error
}

// ImageUpload is an optional image attached to a multipart form.
type ImageUpload struct {
	Filename string
	Reader   io.Reader
}

// EventService manages events and participation.
type EventService struct {
	repo      eventRepository
	uploader  imageUploader
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	location  *time.Location
	now       func() time.Time
}

// NewEventService constructs the service. Zone-less form dates are read in loc.
func NewEventService(repo eventRepository, uploader imageUploader, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger, loc *time.Location) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &EventService{repo: repo, uploader: uploader, cache: cache, validator: validate, logger: logger, location: loc, now: time.Now}
}

// ListForUser returns active events as seen by userID.
func (s *EventService) ListForUser(ctx context.Context, userID int64) ([]models.EventView, error) {
	events, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	now := s.now()
	for i := range events {
		events[i].RegistrationStatus = events[i].RegistrationStatusAt(now)
	}
	return events, nil
}

// List returns events for officers, filtered by archive state.
func (s *EventService) List(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	events, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	return events, nil
}

// Create stores a new event. Registration opens now unless a start is given.
func (s *EventService) Create(ctx context.Context, form dto.EventForm, image *ImageUpload) (*models.Event, error) {
	if err := s.validator.Struct(form); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	if form.Title == nil || strings.TrimSpace(*form.Title) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title is required")
	}

	event := &models.Event{}
	if err := s.applyForm(event, form); err != nil {
		return nil, err
	}
	if event.RegistrationStart == nil {
		start := s.now().UTC()
		event.RegistrationStart = &start
	}
	if err := checkRegistrationWindow(event); err != nil {
		return nil, err
	}
	if err := s.attachImage(ctx, event, image); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}
	s.invalidateDashboard(ctx)
	return event, nil
}

// Update applies the fields present in form to an active event.
func (s *EventService) Update(ctx context.Context, id int64, form dto.EventForm, image *ImageUpload) (*models.Event, error) {
	if err := s.validator.Struct(form); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}
	event, err := s.findEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyForm(event, form); err != nil {
		return nil, err
	}
	if strings.TrimSpace(event.Title) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "title is required")
	}
	if err := checkRegistrationWindow(event); err != nil {
		return nil, err
	}
	if err := s.attachImage(ctx, event, image); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}
	s.invalidateDashboard(ctx)
	return event, nil
}

// Archive soft deletes an event.
func (s *EventService) Archive(ctx context.Context, id int64) error {
	if err := s.repo.Archive(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "Event not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive event")
	}
	s.invalidateDashboard(ctx)
	return nil
}

// Join adds userID to the event while registration is open. Joining twice
// reports the existing participation instead of failing.
func (s *EventService) Join(ctx context.Context, eventID, userID int64) (*dto.ParticipationResponse, error) {
	event, err := s.findEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	switch event.RegistrationStatusAt(now) {
	case models.RegistrationNotStarted:
		return nil, appErrors.Clone(appErrors.ErrRegistrationClosed, "Registration for this event has not started yet")
	case models.RegistrationClosed:
		return nil, appErrors.Clone(appErrors.ErrRegistrationClosed, "Registration for this event has ended")
	}

	added, err := s.repo.AddParticipant(ctx, eventID, userID, now.UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to join event")
	}
	message := MsgAlreadyParticipant
	if added {
		message = MsgJoinedEvent
		s.invalidateDashboard(ctx)
		s.logger.Info("user joined event", zap.Int64("user_id", userID), zap.Int64("event_id", eventID))
	}
	return s.participation(ctx, eventID, message, true)
}

// Leave removes userID from the event. It fails once registration has ended.
func (s *EventService) Leave(ctx context.Context, eventID, userID int64) (*dto.ParticipationResponse, error) {
	event, err := s.findEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.RegistrationEnd != nil && s.now().After(*event.RegistrationEnd) {
		return nil, appErrors.Clone(appErrors.ErrRegistrationClosed, "Registration for this event has ended, cannot leave now")
	}

	removed, err := s.repo.RemoveParticipant(ctx, eventID, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to leave event")
	}
	message := MsgNotParticipant
	if removed {
		message = MsgLeftEvent
		s.invalidateDashboard(ctx)
		s.logger.Info("user left event", zap.Int64("user_id", userID), zap.Int64("event_id", eventID))
	}
	return s.participation(ctx, eventID, message, false)
}

// Participants lists the users who joined an active event.
func (s *EventService) Participants(ctx context.Context, eventID int64) ([]models.EventParticipant, error) {
	if _, err := s.findEvent(ctx, eventID); err != nil {
		return nil, err
	}
	participants, err := s.repo.Participants(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list participants")
	}
	return participants, nil
}

func (s *EventService) participation(ctx context.Context, eventID int64, message string, participant bool) (*dto.ParticipationResponse, error) {
	count, err := s.repo.CountParticipants(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count participants")
	}
	return &dto.ParticipationResponse{Message: message, EventID: eventID, IsParticipant: participant, ParticipantCount: count}, nil
}

func (s *EventService) findEvent(ctx context.Context, id int64) (*models.Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

func (s *EventService) applyForm(event *models.Event, form dto.EventForm) error {
	if form.Title != nil {
		event.Title = strings.TrimSpace(*form.Title)
	}
	if form.Description != nil {
		event.Description = *form.Description
	}
	if form.Location != nil {
		event.Location = strings.TrimSpace(*form.Location)
	}
	fields := []struct {
		name  string
		value *string
		dest  **time.Time
	}{
		{"date", form.Date, &event.Date},
		{"registration_start", form.RegistrationStart, &event.RegistrationStart},
		{"registration_end", form.RegistrationEnd, &event.RegistrationEnd},
	}
	for _, field := range fields {
		set, parsed, err := parseOptionalTime(field.value, s.location)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid "+field.name)
		}
		if set {
			*field.dest = parsed
		}
	}
	return nil
}

func (s *EventService) attachImage(ctx context.Context, event *models.Event, image *ImageUpload) error {
	if image == nil || image.Reader == nil {
		return nil
	}
	url, err := s.uploader.UploadImage(ctx, storage.FolderEventImages, image.Filename, image.Reader, true)
	if err != nil {
		return err
	}
	event.ImageURL = &url
	return nil
}

func (s *EventService) invalidateDashboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateDashboards(ctx); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

func checkRegistrationWindow(event *models.Event) error {
	if event.RegistrationStart != nil && event.RegistrationEnd != nil && event.RegistrationEnd.Before(*event.RegistrationStart) {
		return appErrors.Clone(appErrors.ErrValidation, "registration_end must not be before registration_start")
	}
	return nil
}
