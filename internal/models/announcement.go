package models

import "time"

// Announcement is a notice published by officers.
type Announcement struct {
	ID          int64      `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	Date        *time.Time `db:"date" json:"date,omitempty"`
	Location    string     `db:"location" json:"location"`
	ImageURL    *string    `db:"image_url" json:"image_url,omitempty"`
	Archived    bool       `db:"archived" json:"archived"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// AnnouncementFilter scopes announcement listings.
type AnnouncementFilter struct {
	Archived *bool
}
