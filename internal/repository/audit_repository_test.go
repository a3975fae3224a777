package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/specs-nexus-api/internal/models"
)

func TestCreateAuditLog(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	actor := int64(3)
	mock.ExpectQuery("INSERT INTO audit_logs").
		WithArgs(models.RoleOfficer, &actor, models.AuditActionEventCreate, "events", nil, `{"title":"x"}`, "127.0.0.1", "test", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	entry := &models.AuditLog{
		ActorType: models.RoleOfficer,
		ActorID:   &actor,
		Action:    models.AuditActionEventCreate,
		Resource:  "events",
		NewValues: []byte(`{"title":"x"}`),
		IPAddress: "127.0.0.1",
		UserAgent: "test",
	}
	require.NoError(t, repo.CreateAuditLog(context.Background(), entry))
	assert.Equal(t, int64(11), entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
