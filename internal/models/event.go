package models

import "time"

// RegistrationStatus describes where now falls relative to an event's window.
type RegistrationStatus string

const (
	RegistrationOpen       RegistrationStatus = "Open"
	RegistrationNotStarted RegistrationStatus = "Not Started"
	RegistrationClosed     RegistrationStatus = "Closed"
)

// Event is an organization activity users can join.
type Event struct {
	ID                int64      `db:"id" json:"id"`
	Title             string     `db:"title" json:"title"`
	Description       string     `db:"description" json:"description"`
	Date              *time.Time `db:"date" json:"date,omitempty"`
	Location          string     `db:"location" json:"location"`
	ImageURL          *string    `db:"image_url" json:"image_url,omitempty"`
	RegistrationStart *time.Time `db:"registration_start" json:"registration_start,omitempty"`
	RegistrationEnd   *time.Time `db:"registration_end" json:"registration_end,omitempty"`
	Archived          bool       `db:"archived" json:"archived"`
	ParticipantCount  int        `db:"participant_count" json:"participant_count"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// EventView is an event as seen by one user.
type EventView struct {
	Event
	IsParticipant      bool               `db:"is_participant" json:"is_participant"`
	RegistrationStatus RegistrationStatus `db:"-" json:"registration_status"`
}

// EventSummary is the compact event shape embedded in user profiles.
type EventSummary struct {
	ID       int64      `db:"id" json:"id"`
	Title    string     `db:"title" json:"title"`
	Date     *time.Time `db:"date" json:"date,omitempty"`
	Location string     `db:"location" json:"location"`
}

// EventParticipant is a user who joined an event.
type EventParticipant struct {
	ID            int64     `db:"id" json:"id"`
	FullName      string    `db:"full_name" json:"full_name"`
	Email         string    `db:"email" json:"email"`
	StudentNumber string    `db:"student_number" json:"student_number"`
	Year          string    `db:"year" json:"year"`
	Block         string    `db:"block" json:"block"`
	JoinedAt      time.Time `db:"joined_at" json:"joined_at"`
}

// RegistrationStatusAt reports whether registration is open at now. Unset
// bounds are treated as unbounded on that side.
func (e *Event) RegistrationStatusAt(now time.Time) RegistrationStatus {
	if e.RegistrationStart != nil && now.Before(*e.RegistrationStart) {
		return RegistrationNotStarted
	}
	if e.RegistrationEnd != nil && now.After(*e.RegistrationEnd) {
		return RegistrationClosed
	}
	return RegistrationOpen
}

// EventFilter scopes event listings.
type EventFilter struct {
	Archived *bool
}
