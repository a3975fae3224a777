package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/specs-nexus-api/internal/models"
)

const officerColumns = `id, full_name, email, student_number, year, block, password_hash, position, created_at, updated_at`

// OfficerRepository persists officer accounts.
type OfficerRepository struct {
	db *sqlx.DB
}

// NewOfficerRepository creates the repository.
func NewOfficerRepository(db *sqlx.DB) *OfficerRepository {
	return &OfficerRepository{db: db}
}

// FindByEmail returns an officer by email address.
func (r *OfficerRepository) FindByEmail(ctx context.Context, email string) (*models.Officer, error) {
	query := `SELECT ` + officerColumns + ` FROM officers WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var officer models.Officer
	if err := r.db.GetContext(ctx, &officer, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find officer by email: %w", err)
	}
	return &officer, nil
}

// FindByID returns an officer by identifier.
func (r *OfficerRepository) FindByID(ctx context.Context, id int64) (*models.Officer, error) {
	query := `SELECT ` + officerColumns + ` FROM officers WHERE id = $1 LIMIT 1`
	var officer models.Officer
	if err := r.db.GetContext(ctx, &officer, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find officer by id: %w", err)
	}
	return &officer, nil
}

// ExistsByIdentity reports whether an officer already uses email or studentNumber.
func (r *OfficerRepository) ExistsByIdentity(ctx context.Context, email, studentNumber string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM officers WHERE LOWER(email) = LOWER($1) OR student_number = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email, studentNumber); err != nil {
		return false, fmt.Errorf("check officer identity: %w", err)
	}
	return exists, nil
}

// List returns the full officer roster.
func (r *OfficerRepository) List(ctx context.Context) ([]models.Officer, error) {
	query := `SELECT ` + officerColumns + ` FROM officers ORDER BY full_name ASC, id ASC`
	officers := make([]models.Officer, 0)
	if err := r.db.SelectContext(ctx, &officers, query); err != nil {
		return nil, fmt.Errorf("list officers: %w", err)
	}
	return officers, nil
}

// Create inserts an officer and fills its identifier.
func (r *OfficerRepository) Create(ctx context.Context, officer *models.Officer) error {
	now := time.Now().UTC()
	if officer.CreatedAt.IsZero() {
		officer.CreatedAt = now
	}
	officer.UpdatedAt = now

	const query = `INSERT INTO officers (full_name, email, student_number, year, block, password_hash, position, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, officer.FullName, officer.Email, officer.StudentNumber, officer.Year, officer.Block, officer.PasswordHash, officer.Position, officer.CreatedAt, officer.UpdatedAt).Scan(&officer.ID); err != nil {
		return fmt.Errorf("create officer: %w", mapConstraintError(err))
	}
	return nil
}

// Update writes the mutable officer fields.
func (r *OfficerRepository) Update(ctx context.Context, officer *models.Officer) error {
	officer.UpdatedAt = time.Now().UTC()
	const query = `UPDATE officers SET full_name = :full_name, email = :email, student_number = :student_number, year = :year, block = :block, position = :position, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, officer); err != nil {
		return fmt.Errorf("update officer: %w", mapConstraintError(err))
	}
	return nil
}

// Delete removes an officer permanently. It returns sql.ErrNoRows when no row matched.
func (r *OfficerRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM officers WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete officer: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete officer rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
