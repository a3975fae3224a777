package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/specs-nexus-api/internal/models"
)

// AuditRepository appends audit trail entries.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateAuditLog stores an audit log entry.
func (r *AuditRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs (actor_type, actor_id, action, resource, resource_id, new_values, ip_address, user_agent, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	var newValues interface{}
	if len(log.NewValues) > 0 {
		newValues = string(log.NewValues)
	}
	if err := r.db.QueryRowxContext(ctx, query, log.ActorType, log.ActorID, log.Action, log.Resource, log.ResourceID, newValues, log.IPAddress, log.UserAgent, log.CreatedAt).Scan(&log.ID); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
