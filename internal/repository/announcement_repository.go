package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/specs-nexus-api/internal/models"
)

const announcementColumns = `id, title, description, date, location, image_url, archived, created_at, updated_at`

// AnnouncementRepository provides persistence for announcements.
type AnnouncementRepository struct {
	db *sqlx.DB
}

// NewAnnouncementRepository creates the repository.
func NewAnnouncementRepository(db *sqlx.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

// List returns announcements newest first. A nil Archived flag lists active ones.
func (r *AnnouncementRepository) List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, error) {
	archived := false
	if filter.Archived != nil {
		archived = *filter.Archived
	}
	query := `SELECT ` + announcementColumns + ` FROM announcements WHERE archived = $1 ORDER BY date DESC NULLS LAST, id DESC`
	announcements := make([]models.Announcement, 0)
	if err := r.db.SelectContext(ctx, &announcements, query, archived); err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	return announcements, nil
}

// FindByID returns an active announcement.
func (r *AnnouncementRepository) FindByID(ctx context.Context, id int64) (*models.Announcement, error) {
	query := `SELECT ` + announcementColumns + ` FROM announcements WHERE id = $1 AND NOT archived LIMIT 1`
	var announcement models.Announcement
	if err := r.db.GetContext(ctx, &announcement, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find announcement by id: %w", err)
	}
	return &announcement, nil
}

// Create inserts an announcement.
func (r *AnnouncementRepository) Create(ctx context.Context, announcement *models.Announcement) error {
	now := time.Now().UTC()
	announcement.CreatedAt = now
	announcement.UpdatedAt = now
	const query = `INSERT INTO announcements (title, description, date, location, image_url, archived, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7) RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query, announcement.Title, announcement.Description, announcement.Date, announcement.Location, announcement.ImageURL, announcement.CreatedAt, announcement.UpdatedAt).Scan(&announcement.ID); err != nil {
		return fmt.Errorf("create announcement: %w", err)
	}
	return nil
}

// Update modifies an existing announcement.
func (r *AnnouncementRepository) Update(ctx context.Context, announcement *models.Announcement) error {
	announcement.UpdatedAt = time.Now().UTC()
	const query = `UPDATE announcements SET title = :title, description = :description, date = :date, location = :location, image_url = :image_url, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, announcement); err != nil {
		return fmt.Errorf("update announcement: %w", err)
	}
	return nil
}

// Archive soft deletes an announcement. It returns sql.ErrNoRows when no active row matched.
func (r *AnnouncementRepository) Archive(ctx context.Context, id int64) error {
	const query = `UPDATE announcements SET archived = TRUE, updated_at = $2 WHERE id = $1 AND NOT archived`
	res, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("archive announcement: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("archive announcement rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
