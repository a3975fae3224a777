package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/specs-nexus-api/internal/models"
	"github.com/noah-isme/specs-nexus-api/internal/repository"
	appErrors "github.com/noah-isme/specs-nexus-api/pkg/errors"
)

type mockUserRepo struct {
	users      map[int64]*models.User
	createErr  error
	touched    map[int64]time.Time
	events     []models.EventSummary
	nextID     int64
	updateCall int
}

func newMockUserRepo(users ...*models.User) *mockUserRepo {
	repo := &mockUserRepo{users: map[int64]*models.User{}, touched: map[int64]time.Time{}, nextID: 100}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByStudentNumber(ctx context.Context, studentNumber string) (*models.User, error) {
	for _, u := range m.users {
		if u.StudentNumber == studentNumber {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByIDs(ctx context.Context, ids []int64) ([]models.User, error) {
	var out []models.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	user.ID = m.nextID
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, user *models.User) error {
	m.updateCall++
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) TouchLastActive(ctx context.Context, id int64, ts time.Time) error {
	m.touched[id] = ts
	return nil
}

func (m *mockUserRepo) ParticipatedEvents(ctx context.Context, userID int64) ([]models.EventSummary, error) {
	return m.events, nil
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var out []models.User
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, len(out), nil
}

type mockOfficerLookup struct {
	officer *models.Officer
}

func (m *mockOfficerLookup) FindByEmail(ctx context.Context, email string) (*models.Officer, error) {
	if m.officer == nil || m.officer.Email != email {
		return nil, sql.ErrNoRows
	}
	return m.officer, nil
}

type mockAuditLogger struct {
	entries []*models.AuditLog
}

func (m *mockAuditLogger) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.entries = append(m.entries, log)
	return nil
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newTestAuthService(users *mockUserRepo, officers *mockOfficerLookup, audit *mockAuditLogger) *AuthService {
	var logger auditLogger
	if audit != nil {
		logger = audit
	}
	return NewAuthService(users, officers, logger, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret: "secret",
		AccessTokenExpiry: 30 * time.Minute,
		Issuer:            "specs-nexus-api",
	})
}

func TestAuthServiceLoginByEmailOrStudentNumber(t *testing.T) {
	user := &models.User{ID: 7, Email: "ada@example.com", StudentNumber: "2021-0001", FullName: "Ada", PasswordHash: hashPassword(t, "password1")}
	users := newMockUserRepo(user)
	audit := &mockAuditLogger{}
	svc := newTestAuthService(users, &mockOfficerLookup{}, audit)

	for _, identifier := range []string{"ada@example.com", "2021-0001"} {
		res, err := svc.Login(context.Background(), models.LoginRequest{EmailOrStudentNumber: identifier, Password: "password1"})
		require.NoError(t, err, identifier)
		assert.NotEmpty(t, res.AccessToken)
		assert.Equal(t, "bearer", res.TokenType)
		assert.Equal(t, int64(1800), res.ExpiresIn)
		require.NotNil(t, res.User)
		assert.NotNil(t, res.User.LastActive)
	}
	assert.Contains(t, users.touched, int64(7))
	require.Len(t, audit.entries, 2)
	assert.Equal(t, models.AuditActionLogin, audit.entries[0].Action)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	user := &models.User{ID: 7, Email: "ada@example.com", PasswordHash: hashPassword(t, "password1")}
	svc := newTestAuthService(newMockUserRepo(user), &mockOfficerLookup{}, &mockAuditLogger{})

	_, err := svc.Login(context.Background(), models.LoginRequest{EmailOrStudentNumber: "ada@example.com", Password: "nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	_, err = svc.Login(context.Background(), models.LoginRequest{EmailOrStudentNumber: "ghost@example.com", Password: "password1"})
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceOfficerTokenCarriesRole(t *testing.T) {
	officer := &models.Officer{ID: 3, Email: "pres@example.com", FullName: "President", PasswordHash: hashPassword(t, "password1"), Position: "President"}
	svc := newTestAuthService(newMockUserRepo(), &mockOfficerLookup{officer: officer}, &mockAuditLogger{})

	res, err := svc.OfficerLogin(context.Background(), models.OfficerLoginRequest{Email: "pres@example.com", Password: "password1"})
	require.NoError(t, err)
	require.NotNil(t, res.Officer)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(3), claims.UserID)
	assert.True(t, claims.IsOfficer())
	assert.Equal(t, "3", claims.Subject)
}

func TestAuthServiceRegisterDuplicate(t *testing.T) {
	users := newMockUserRepo()
	users.createErr = fmt.Errorf("create user: %w", repository.ErrDuplicate)
	svc := newTestAuthService(users, &mockOfficerLookup{}, nil)

	_, err := svc.Register(context.Background(), models.RegisterRequest{FullName: "Ada", Email: "ada@example.com", StudentNumber: "1", Password: "password1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Status, appErrors.FromError(err).Status)
}

func TestAuthServiceRegisterHashesPassword(t *testing.T) {
	users := newMockUserRepo()
	svc := newTestAuthService(users, &mockOfficerLookup{}, nil)

	user, err := svc.Register(context.Background(), models.RegisterRequest{FullName: " Ada ", Email: "ADA@example.com", StudentNumber: "1", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.FullName)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("password1")))
}

func TestAuthServiceRegisterValidation(t *testing.T) {
	svc := newTestAuthService(newMockUserRepo(), &mockOfficerLookup{}, nil)
	_, err := svc.Register(context.Background(), models.RegisterRequest{FullName: "Ada", Email: "not-an-email", StudentNumber: "1", Password: "short"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceProfileAndUpdate(t *testing.T) {
	user := &models.User{ID: 7, FullName: "Ada", Year: "1st Year"}
	users := newMockUserRepo(user)
	users.events = []models.EventSummary{{ID: 1, Title: "Assembly"}}
	svc := newTestAuthService(users, &mockOfficerLookup{}, nil)

	profile, err := svc.Profile(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, profile.ParticipatedEvents, 1)

	year := "2nd Year"
	updated, err := svc.UpdateProfile(context.Background(), 7, models.UpdateProfileRequest{Year: &year})
	require.NoError(t, err)
	assert.Equal(t, "2nd Year", updated.Year)
	assert.Equal(t, "Ada", updated.FullName)
	assert.Equal(t, 1, users.updateCall)

	_, err = svc.Profile(context.Background(), 99)
	assert.Equal(t, appErrors.ErrNotFound.Status, appErrors.FromError(err).Status)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	svc := newTestAuthService(newMockUserRepo(), &mockOfficerLookup{}, nil)
	token, err := svc.generateAccessToken(1, models.RoleUser, "a@example.com", "A")
	require.NoError(t, err)

	other := NewAuthService(nil, nil, nil, nil, nil, AuthConfig{AccessTokenSecret: "different", AccessTokenExpiry: time.Minute})
	_, err = other.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Status, appErrors.FromError(err).Status)
}
