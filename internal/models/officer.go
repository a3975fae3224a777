package models

import "time"

// Officer is an administrative account. It is a separate record from User:
// the identity fields are copied once from a user when the officer is created.
type Officer struct {
	ID            int64     `db:"id" json:"id"`
	FullName      string    `db:"full_name" json:"full_name"`
	Email         string    `db:"email" json:"email"`
	StudentNumber string    `db:"student_number" json:"student_number"`
	Year          string    `db:"year" json:"year"`
	Block         string    `db:"block" json:"block"`
	PasswordHash  string    `db:"password_hash" json:"-"`
	Position      string    `db:"position" json:"position"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// NewOfficerFromUser copies the identity and credentials of user into a new
// officer record holding position.
func NewOfficerFromUser(user *User, position string, at time.Time) *Officer {
	return &Officer{
		FullName:      user.FullName,
		Email:         user.Email,
		StudentNumber: user.StudentNumber,
		Year:          user.Year,
		Block:         user.Block,
		PasswordHash:  user.PasswordHash,
		Position:      position,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
}
