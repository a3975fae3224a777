package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/specs-nexus-api/internal/models"
)

func TestCreateRequirementForAllCountsOnlyMissingUsers(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClearanceRepository(db)
	at := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO clearances (user_id, requirement, amount, payment_status, status, archived, last_updated, created_at)\nSELECT u.id")).
		WithArgs("Lab Fee", 150.0, models.PaymentNotPaid, models.ClearanceNotYetCleared, at).
		WillReturnResult(sqlmock.NewResult(0, 7))
	mock.ExpectCommit()

	created, err := repo.CreateRequirementForAll(context.Background(), "Lab Fee", 150, at)
	require.NoError(t, err)
	assert.Equal(t, 7, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRequirementForAllRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClearanceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO clearances").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	_, err := repo.CreateRequirementForAll(context.Background(), "Lab Fee", 150, time.Now())
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListClearancesWithFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClearanceRepository(db)

	now := time.Now()
	columns := []string{"id", "user_id", "requirement", "amount", "payment_status", "status", "payment_method", "receipt_path", "payment_date", "approval_date", "denial_reason", "archived", "last_updated", "created_at",
		"user_full_name", "user_email", "user_student_number", "user_year", "user_block"}
	rows := sqlmock.NewRows(columns).
		AddRow(1, 7, models.RequirementFirstSemester, 500.0, "Verifying", "Processing", "gcash", "https://cdn/r.png", now, nil, nil, false, now, now,
			"Ada", "ada@example.com", "1", "2nd Year", "B")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE NOT c.archived AND c.requirement = $1 AND c.payment_status = $2 ORDER BY c.last_updated DESC, c.id DESC LIMIT 20 OFFSET 0")).
		WithArgs(models.RequirementFirstSemester, models.PaymentVerifying).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM clearances c WHERE NOT c.archived AND c.requirement = $1 AND c.payment_status = $2")).
		WithArgs(models.RequirementFirstSemester, models.PaymentVerifying).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	items, total, err := repo.List(context.Background(), models.ClearanceFilter{Requirement: models.RequirementFirstSemester, PaymentStatus: models.PaymentVerifying})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Ada", items[0].UserFullName)
	require.NotNil(t, items[0].PaymentMethod)
	assert.Equal(t, models.PaymentMethodGCash, *items[0].PaymentMethod)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveRequirementReportsAffected(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClearanceRepository(db)
	at := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE clearances SET archived = TRUE, last_updated = $2 WHERE requirement = $1 AND NOT archived")).
		WithArgs("Lab Fee", at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err := repo.ArchiveRequirement(context.Background(), "Lab Fee", at)
	require.NoError(t, err)
	assert.Zero(t, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRequirementsSummarisesActiveRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClearanceRepository(db)

	rows := sqlmock.NewRows([]string{"requirement", "amount", "total", "paid", "verifying", "not_paid"}).
		AddRow("1st Semester Membership", 500.0, 10, 6, 1, 3).
		AddRow("Lab Fee", 150.0, 10, 0, 0, 10)
	mock.ExpectQuery(regexp.QuoteMeta("FROM clearances WHERE NOT archived GROUP BY requirement")).WillReturnRows(rows)

	summaries, err := repo.ListRequirements(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, models.RequirementSummary{Requirement: "1st Semester Membership", Amount: 500, Total: 10, Paid: 6, Verifying: 1, NotPaid: 3}, summaries[0])
	assert.Equal(t, 10, summaries[1].NotPaid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateClearancePersistsPaymentDate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClearanceRepository(db)

	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	clearance := models.NewClearance(7, models.RequirementFirstSemester, 500, at)
	require.NoError(t, clearance.SetPaymentStatus(models.PaymentPaid, at))

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO clearances (user_id, requirement, amount, payment_status, status, payment_date, archived, last_updated, created_at)")).
		WithArgs(int64(7), models.RequirementFirstSemester, 500.0, models.PaymentPaid, models.ClearanceClear, at, at, at).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

	require.NoError(t, repo.Create(context.Background(), clearance))
	assert.Equal(t, int64(11), clearance.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
