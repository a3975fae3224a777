package models

import "time"

// UserRole represents the kind of account a token was issued to.
type UserRole string

const (
	RoleUser    UserRole = "USER"
	RoleOfficer UserRole = "OFFICER"
)

// User represents a registered student stored in the users table.
type User struct {
	ID            int64      `db:"id" json:"id"`
	FullName      string     `db:"full_name" json:"full_name"`
	Email         string     `db:"email" json:"email"`
	StudentNumber string     `db:"student_number" json:"student_number"`
	Year          string     `db:"year" json:"year"`
	Block         string     `db:"block" json:"block"`
	PasswordHash  string     `db:"password_hash" json:"-"`
	LastActive    *time.Time `db:"last_active" json:"last_active,omitempty"`
	Archived      bool       `db:"archived" json:"archived"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// UserProfile is a user together with the events they joined.
type UserProfile struct {
	User
	ParticipatedEvents []EventSummary `json:"participated_events"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Search   string
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
