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
	"github.com/noah-isme/specs-nexus-api/internal/repository"
	appErrors "github.com/noah-isme/specs-nexus-api/pkg/errors"
)

type officerRepository interface {
	List(ctx context.Context) ([]models.Officer, error)
	FindByID(ctx context.Context, id int64) (*models.Officer, error)
	ExistsByIdentity(ctx context.Context, email, studentNumber string) (bool, error)
	Create(ctx context.Context, officer *models.Officer) error
	Update(ctx context.Context, officer *models.Officer) error
	Delete(ctx context.Context, id int64) error
}

type officerUserRepository interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByIDs(ctx context.Context, ids []int64) ([]models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
}

// OfficerService manages the officer roster.
type OfficerService struct {
	officers  officerRepository
	users     officerUserRepository
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewOfficerService constructs the service.
func NewOfficerService(officers officerRepository, users officerUserRepository, validate *validator.Validate, logger *zap.Logger) *OfficerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OfficerService{officers: officers, users: users, validator: validate, logger: logger, now: time.Now}
}

// List returns every officer.
func (s *OfficerService) List(ctx context.Context) ([]models.Officer, error) {
	officers, err := s.officers.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list officers")
	}
	return officers, nil
}

// ListUsers returns registered users for officer tooling.
func (s *OfficerService) ListUsers(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Create promotes a user to an officer by copying their identity.
func (s *OfficerService) Create(ctx context.Context, req dto.CreateOfficerRequest) (*models.Officer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid officer payload")
	}
	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	exists, err := s.officers.ExistsByIdentity(ctx, user.Email, user.StudentNumber)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check officer")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "user is already an officer")
	}

	officer := models.NewOfficerFromUser(user, strings.TrimSpace(req.Position), s.now().UTC())
	if err := s.officers.Create(ctx, officer); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "user is already an officer")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create officer")
	}
	return officer, nil
}

// BulkCreate promotes several users. Missing users and existing officers are skipped.
func (s *OfficerService) BulkCreate(ctx context.Context, req dto.BulkCreateOfficerRequest) (*dto.BulkCreateOfficerResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid officer payload")
	}
	users, err := s.users.FindByIDs(ctx, req.UserIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load users")
	}
	byID := make(map[int64]*models.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}

	result := &dto.BulkCreateOfficerResponse{Created: []models.Officer{}, Skipped: []int64{}}
	position := strings.TrimSpace(req.Position)
	seen := make(map[int64]struct{}, len(req.UserIDs))
	for _, id := range req.UserIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		user, ok := byID[id]
		if !ok {
			result.Skipped = append(result.Skipped, id)
			continue
		}
		exists, err := s.officers.ExistsByIdentity(ctx, user.Email, user.StudentNumber)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check officer")
		}
		if exists {
			result.Skipped = append(result.Skipped, id)
			continue
		}
		officer := models.NewOfficerFromUser(user, position, s.now().UTC())
		if err := s.officers.Create(ctx, officer); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				result.Skipped = append(result.Skipped, id)
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create officer")
		}
		result.Created = append(result.Created, *officer)
	}
	s.logger.Info("officers created in bulk", zap.Int("created", len(result.Created)), zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

// Update changes officer fields that are present in req.
func (s *OfficerService) Update(ctx context.Context, id int64, req dto.UpdateOfficerRequest) (*models.Officer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid officer payload")
	}
	officer, err := s.officers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "officer not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load officer")
	}
	if req.FullName != nil {
		officer.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Email != nil {
		officer.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.StudentNumber != nil {
		officer.StudentNumber = strings.TrimSpace(*req.StudentNumber)
	}
	if req.Year != nil {
		officer.Year = strings.TrimSpace(*req.Year)
	}
	if req.Block != nil {
		officer.Block = strings.TrimSpace(*req.Block)
	}
	if req.Position != nil {
		officer.Position = strings.TrimSpace(*req.Position)
	}
	if err := s.officers.Update(ctx, officer); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email or student number already used by another officer")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update officer")
	}
	return officer, nil
}

// Delete removes an officer.
func (s *OfficerService) Delete(ctx context.Context, id int64) error {
	if err := s.officers.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "officer not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete officer")
	}
	return nil
}
