package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/specs-nexus-api/internal/models"
)

const clearanceColumns = `id, user_id, requirement, amount, payment_status, status, payment_method, receipt_path, payment_date, approval_date, denial_reason, archived, last_updated, created_at`

const clearanceWithUserSelect = `SELECT c.id, c.user_id, c.requirement, c.amount, c.payment_status, c.status, c.payment_method, c.receipt_path, c.payment_date, c.approval_date, c.denial_reason, c.archived, c.last_updated, c.created_at,
u.full_name AS user_full_name, u.email AS user_email, u.student_number AS user_student_number, u.year AS user_year, u.block AS user_block
FROM clearances c JOIN users u ON u.id = c.user_id`

// ClearanceRepository persists clearance (membership payment) records.
type ClearanceRepository struct {
	db *sqlx.DB
}

// NewClearanceRepository creates the repository.
func NewClearanceRepository(db *sqlx.DB) *ClearanceRepository {
	return &ClearanceRepository{db: db}
}

// FindByID returns a non-archived clearance.
func (r *ClearanceRepository) FindByID(ctx context.Context, id int64) (*models.Clearance, error) {
	query := `SELECT ` + clearanceColumns + ` FROM clearances WHERE id = $1 AND NOT archived LIMIT 1`
	var clearance models.Clearance
	if err := r.db.GetContext(ctx, &clearance, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find clearance by id: %w", err)
	}
	return &clearance, nil
}

// ListByUser returns the non-archived clearances owned by userID.
func (r *ClearanceRepository) ListByUser(ctx context.Context, userID int64) ([]models.Clearance, error) {
	query := `SELECT ` + clearanceColumns + ` FROM clearances WHERE user_id = $1 AND NOT archived ORDER BY created_at ASC, id ASC`
	clearances := make([]models.Clearance, 0)
	if err := r.db.SelectContext(ctx, &clearances, query, userID); err != nil {
		return nil, fmt.Errorf("list clearances by user: %w", err)
	}
	return clearances, nil
}

func clearanceConditions(filter models.ClearanceFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if !filter.IncludeArchived {
		conditions = append(conditions, "NOT c.archived")
	}
	if filter.Requirement != "" {
		args = append(args, filter.Requirement)
		conditions = append(conditions, fmt.Sprintf("c.requirement = $%d", len(args)))
	}
	if filter.PaymentStatus != "" {
		args = append(args, filter.PaymentStatus)
		conditions = append(conditions, fmt.Sprintf("c.payment_status = $%d", len(args)))
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// List returns clearances joined with their owners, paginated, with total count.
func (r *ClearanceRepository) List(ctx context.Context, filter models.ClearanceFilter) ([]models.ClearanceWithUser, int, error) {
	where, args := clearanceConditions(filter)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("%s%s ORDER BY c.last_updated DESC, c.id DESC LIMIT %d OFFSET %d", clearanceWithUserSelect, where, pageSize, offset)
	clearances := make([]models.ClearanceWithUser, 0)
	if err := r.db.SelectContext(ctx, &clearances, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list clearances: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM clearances c%s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count clearances: %w", err)
	}
	return clearances, total, nil
}

// ListAll returns every clearance matching filter without pagination, for exports.
func (r *ClearanceRepository) ListAll(ctx context.Context, filter models.ClearanceFilter) ([]models.ClearanceWithUser, error) {
	where, args := clearanceConditions(filter)
	query := fmt.Sprintf("%s%s ORDER BY c.requirement ASC, u.full_name ASC, c.id ASC", clearanceWithUserSelect, where)
	clearances := make([]models.ClearanceWithUser, 0)
	if err := r.db.SelectContext(ctx, &clearances, query, args...); err != nil {
		return nil, fmt.Errorf("export clearances: %w", err)
	}
	return clearances, nil
}

// Create inserts a clearance. A second active row for the same user and
// requirement yields ErrDuplicate.
func (r *ClearanceRepository) Create(ctx context.Context, clearance *models.Clearance) error {
	const query = `INSERT INTO clearances (user_id, requirement, amount, payment_status, status, payment_date, archived, last_updated, created_at)
VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7, $8) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, clearance.UserID, clearance.Requirement, clearance.Amount, clearance.PaymentStatus, clearance.Status,
		clearance.PaymentDate, clearance.LastUpdated, clearance.CreatedAt).Scan(&clearance.ID); err != nil {
		return fmt.Errorf("create clearance: %w", mapConstraintError(err))
	}
	return nil
}

// SaveState writes the state machine columns of a clearance.
func (r *ClearanceRepository) SaveState(ctx context.Context, clearance *models.Clearance) error {
	const query = `UPDATE clearances SET payment_status = :payment_status, status = :status, payment_method = :payment_method, receipt_path = :receipt_path,
payment_date = :payment_date, approval_date = :approval_date, denial_reason = :denial_reason, last_updated = :last_updated WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, clearance); err != nil {
		return fmt.Errorf("save clearance state: %w", err)
	}
	return nil
}

// CreateRequirementForAll issues requirement to every active user lacking an
// active clearance for it, in one transaction. It returns the rows created.
func (r *ClearanceRepository) CreateRequirementForAll(ctx context.Context, requirement string, amount float64, at time.Time) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin create requirement: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	const query = `INSERT INTO clearances (user_id, requirement, amount, payment_status, status, archived, last_updated, created_at)
SELECT u.id, $1, $2, $3, $4, FALSE, $5, $5 FROM users u
WHERE NOT u.archived AND NOT EXISTS (
    SELECT 1 FROM clearances c WHERE c.user_id = u.id AND c.requirement = $1 AND NOT c.archived
)`
	res, err := tx.ExecContext(ctx, query, requirement, amount, models.PaymentNotPaid, models.ClearanceNotYetCleared, at)
	if err != nil {
		return 0, fmt.Errorf("create requirement: %w", err)
	}
	created, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("create requirement rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit create requirement: %w", err)
	}
	commit = true
	return int(created), nil
}

// ListRequirements summarises the active requirements.
func (r *ClearanceRepository) ListRequirements(ctx context.Context) ([]models.RequirementSummary, error) {
	const query = `SELECT requirement, MAX(amount) AS amount, COUNT(*) AS total,
COUNT(*) FILTER (WHERE payment_status = 'Paid') AS paid,
COUNT(*) FILTER (WHERE payment_status = 'Verifying') AS verifying,
COUNT(*) FILTER (WHERE payment_status = 'Not Paid') AS not_paid
FROM clearances WHERE NOT archived GROUP BY requirement ORDER BY requirement ASC`
	summaries := make([]models.RequirementSummary, 0)
	if err := r.db.SelectContext(ctx, &summaries, query); err != nil {
		return nil, fmt.Errorf("list requirements: %w", err)
	}
	return summaries, nil
}

// UpdateRequirementAmount changes the amount on every active row of requirement.
func (r *ClearanceRepository) UpdateRequirementAmount(ctx context.Context, requirement string, amount float64, at time.Time) (int64, error) {
	const query = `UPDATE clearances SET amount = $2, last_updated = $3 WHERE requirement = $1 AND NOT archived`
	res, err := r.db.ExecContext(ctx, query, requirement, amount, at)
	if err != nil {
		return 0, fmt.Errorf("update requirement amount: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update requirement rows affected: %w", err)
	}
	return affected, nil
}

// ArchiveRequirement archives every active row of requirement.
func (r *ClearanceRepository) ArchiveRequirement(ctx context.Context, requirement string, at time.Time) (int64, error) {
	const query = `UPDATE clearances SET archived = TRUE, last_updated = $2 WHERE requirement = $1 AND NOT archived`
	res, err := r.db.ExecContext(ctx, query, requirement, at)
	if err != nil {
		return 0, fmt.Errorf("archive requirement: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("archive requirement rows affected: %w", err)
	}
	return affected, nil
}
