package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/specs-nexus-api/internal/models"
)

func TestOfficerExistsByIdentity(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewOfficerRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM officers WHERE LOWER(email) = LOWER($1) OR student_number = $2)")).
		WithArgs("ada@example.com", "2021-0001").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByIdentity(context.Background(), "ada@example.com", "2021-0001")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOfficerCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewOfficerRepository(db)

	mock.ExpectQuery("INSERT INTO officers").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))

	officer := &models.Officer{FullName: "Ada", Email: "ada@example.com", StudentNumber: "1", PasswordHash: "hash", Position: "Treasurer"}
	require.NoError(t, repo.Create(context.Background(), officer))
	assert.Equal(t, int64(5), officer.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOfficerDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewOfficerRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM officers WHERE id = $1")).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 9)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
