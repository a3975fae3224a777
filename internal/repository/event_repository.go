package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/specs-nexus-api/internal/models"
)

const eventSelect = `SELECT e.id, e.title, e.description, e.date, e.location, e.image_url, e.registration_start, e.registration_end, e.archived, e.created_at, e.updated_at,
(SELECT COUNT(*) FROM event_participants ep WHERE ep.event_id = e.id) AS participant_count`

// EventRepository persists events and their participants.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates the repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// List returns events with participant counts. A nil Archived flag lists active events.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	archived := false
	if filter.Archived != nil {
		archived = *filter.Archived
	}
	query := eventSelect + ` FROM events e WHERE e.archived = $1 ORDER BY e.date DESC NULLS LAST, e.id DESC`
	events := make([]models.Event, 0)
	if err := r.db.SelectContext(ctx, &events, query, archived); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// ListForUser returns active events flagged with whether userID joined them.
func (r *EventRepository) ListForUser(ctx context.Context, userID int64) ([]models.EventView, error) {
	query := eventSelect + `,
EXISTS (SELECT 1 FROM event_participants me WHERE me.event_id = e.id AND me.user_id = $1) AS is_participant
FROM events e WHERE NOT e.archived ORDER BY e.date DESC NULLS LAST, e.id DESC`
	events := make([]models.EventView, 0)
	if err := r.db.SelectContext(ctx, &events, query, userID); err != nil {
		return nil, fmt.Errorf("list events for user: %w", err)
	}
	return events, nil
}

// FindByID returns an active event.
func (r *EventRepository) FindByID(ctx context.Context, id int64) (*models.Event, error) {
	query := eventSelect + ` FROM events e WHERE e.id = $1 AND NOT e.archived LIMIT 1`
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find event by id: %w", err)
	}
	return &event, nil
}

// Create inserts an event and fills its identifier.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now
	const query = `INSERT INTO events (title, description, date, location, image_url, registration_start, registration_end, archived, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8, $9) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, event.Title, event.Description, event.Date, event.Location, event.ImageURL, event.RegistrationStart, event.RegistrationEnd, event.CreatedAt, event.UpdatedAt).Scan(&event.ID); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Update writes every mutable event column.
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE events SET title = :title, description = :description, date = :date, location = :location, image_url = :image_url,
registration_start = :registration_start, registration_end = :registration_end, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// Archive soft deletes an event. It returns sql.ErrNoRows when no active event matched.
func (r *EventRepository) Archive(ctx context.Context, id int64) error {
	const query = `UPDATE events SET archived = TRUE, updated_at = $2 WHERE id = $1 AND NOT archived`
	res, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("archive event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("archive event rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AddParticipant records that userID joined eventID. It reports false when the
// pair already existed.
func (r *EventRepository) AddParticipant(ctx context.Context, eventID, userID int64, joinedAt time.Time) (bool, error) {
	const query = `INSERT INTO event_participants (event_id, user_id, joined_at) VALUES ($1, $2, $3) ON CONFLICT (event_id, user_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, eventID, userID, joinedAt)
	if err != nil {
		return false, fmt.Errorf("add event participant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add event participant rows affected: %w", err)
	}
	return affected > 0, nil
}

// RemoveParticipant deletes the participation of userID. It reports false
// when the user was not participating.
func (r *EventRepository) RemoveParticipant(ctx context.Context, eventID, userID int64) (bool, error) {
	const query = `DELETE FROM event_participants WHERE event_id = $1 AND user_id = $2`
	res, err := r.db.ExecContext(ctx, query, eventID, userID)
	if err != nil {
		return false, fmt.Errorf("remove event participant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove event participant rows affected: %w", err)
	}
	return affected > 0, nil
}

// CountParticipants returns the number of users who joined eventID.
func (r *EventRepository) CountParticipants(ctx context.Context, eventID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM event_participants WHERE event_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, eventID); err != nil {
		return 0, fmt.Errorf("count event participants: %w", err)
	}
	return total, nil
}

// Participants lists the users who joined eventID.
func (r *EventRepository) Participants(ctx context.Context, eventID int64) ([]models.EventParticipant, error) {
	const query = `SELECT u.id, u.full_name, u.email, u.student_number, u.year, u.block, ep.joined_at
FROM event_participants ep JOIN users u ON u.id = ep.user_id
WHERE ep.event_id = $1 ORDER BY ep.joined_at ASC, u.id ASC`
	participants := make([]models.EventParticipant, 0)
	if err := r.db.SelectContext(ctx, &participants, query, eventID); err != nil {
		return nil, fmt.Errorf("list event participants: %w", err)
	}
	return participants, nil
}
