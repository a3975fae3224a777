package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/specs-nexus-api/internal/models"
)

// Every clearance query binds $1 = include archived, $2 = window start, $3 = window end.
// Paid rows are dated by payment_date, pending rows by last_updated.
const clearanceWindowScope = `FROM clearances c JOIN users u ON u.id = c.user_id
WHERE ($1 OR (NOT c.archived AND NOT u.archived))
AND ((c.payment_status = 'Paid' AND c.payment_date BETWEEN $2 AND $3)
  OR (c.payment_status <> 'Paid' AND c.last_updated BETWEEN $2 AND $3))`

// AnalyticsRepository exposes read-optimised queries for the dashboard.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository instantiates the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// UserActivity counts registered users and those active within the 30 and 7
// days before now.
func (r *AnalyticsRepository) UserActivity(ctx context.Context, filter models.DashboardFilter, now time.Time) (models.UserActivityCounts, error) {
	const query = `SELECT COUNT(*) AS total,
COUNT(*) FILTER (WHERE last_active >= $2) AS active,
COUNT(*) FILTER (WHERE last_active >= $3) AS recent
FROM users WHERE ($1 OR NOT archived)`
	var counts models.UserActivityCounts
	if err := r.db.GetContext(ctx, &counts, query, filter.IncludeArchived, now.AddDate(0, 0, -30), now.AddDate(0, 0, -7)); err != nil {
		return counts, fmt.Errorf("query user activity: %w", err)
	}
	return counts, nil
}

// Membership counts distinct paid members and pending-only users across all requirements.
func (r *AnalyticsRepository) Membership(ctx context.Context, filter models.DashboardFilter) (models.MembershipCounts, error) {
	query := `WITH per_user AS (
SELECT c.user_id,
BOOL_OR(c.payment_status = 'Paid') AS has_paid,
BOOL_OR(c.payment_status <> 'Paid') AS has_pending
` + clearanceWindowScope + `
GROUP BY c.user_id
)
SELECT '' AS requirement,
COUNT(*) FILTER (WHERE has_paid) AS paid_members,
COUNT(*) FILTER (WHERE has_pending AND NOT has_paid) AS pending_only
FROM per_user`
	var counts models.MembershipCounts
	if err := r.db.GetContext(ctx, &counts, query, filter.IncludeArchived, filter.Start, filter.End); err != nil {
		return counts, fmt.Errorf("query membership: %w", err)
	}
	return counts, nil
}

// MembershipByRequirement counts distinct paid members and pending-only users per requirement.
func (r *AnalyticsRepository) MembershipByRequirement(ctx context.Context, filter models.DashboardFilter) ([]models.MembershipCounts, error) {
	query := `WITH per_user AS (
SELECT c.requirement, c.user_id,
BOOL_OR(c.payment_status = 'Paid') AS has_paid,
BOOL_OR(c.payment_status <> 'Paid') AS has_pending
` + clearanceWindowScope + `
GROUP BY c.requirement, c.user_id
)
SELECT requirement,
COUNT(*) FILTER (WHERE has_paid) AS paid_members,
COUNT(*) FILTER (WHERE has_pending AND NOT has_paid) AS pending_only
FROM per_user GROUP BY requirement ORDER BY requirement`
	counts := make([]models.MembershipCounts, 0)
	if err := r.db.SelectContext(ctx, &counts, query, filter.IncludeArchived, filter.Start, filter.End); err != nil {
		return nil, fmt.Errorf("query membership by requirement: %w", err)
	}
	return counts, nil
}

// ClearanceBuckets groups in-window clearances by requirement, owner year,
// both statuses and payment method.
func (r *AnalyticsRepository) ClearanceBuckets(ctx context.Context, filter models.DashboardFilter) ([]models.ClearanceBucket, error) {
	query := `SELECT c.requirement,
COALESCE(NULLIF(TRIM(u.year), ''), 'Unspecified') AS year,
c.payment_status, c.status,
COALESCE(c.payment_method, '') AS payment_method,
COUNT(*) AS total
` + clearanceWindowScope + `
GROUP BY 1, 2, 3, 4, 5 ORDER BY 1, 2, 3, 4, 5`
	buckets := make([]models.ClearanceBucket, 0)
	if err := r.db.SelectContext(ctx, &buckets, query, filter.IncludeArchived, filter.Start, filter.End); err != nil {
		return nil, fmt.Errorf("query clearance buckets: %w", err)
	}
	return buckets, nil
}

// EventParticipation returns events dated inside the window, or undated, with
// their participant counts.
func (r *AnalyticsRepository) EventParticipation(ctx context.Context, filter models.DashboardFilter) ([]models.EventParticipation, error) {
	const query = `SELECT e.id, e.title, e.date, COUNT(ep.user_id) AS participant_count
FROM events e LEFT JOIN event_participants ep ON ep.event_id = e.id
WHERE ($1 OR NOT e.archived) AND (e.date IS NULL OR e.date BETWEEN $2 AND $3)
GROUP BY e.id, e.title, e.date
ORDER BY e.date ASC NULLS LAST, e.id ASC`
	events := make([]models.EventParticipation, 0)
	if err := r.db.SelectContext(ctx, &events, query, filter.IncludeArchived, filter.Start, filter.End); err != nil {
		return nil, fmt.Errorf("query event participation: %w", err)
	}
	return events, nil
}
