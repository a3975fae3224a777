package dto

import "github.com/noah-isme/specs-nexus-api/internal/models"

// CreateOfficerRequest promotes an existing user to an officer.
type CreateOfficerRequest struct {
	UserID   int64  `json:"user_id" validate:"required,gt=0"`
	Position string `json:"position" validate:"required,max=100"`
}

// BulkCreateOfficerRequest promotes several users to the same position.
type BulkCreateOfficerRequest struct {
	UserIDs  []int64 `json:"user_ids" validate:"required,min=1,dive,gt=0"`
	Position string  `json:"position" validate:"required,max=100"`
}

// BulkCreateOfficerResponse lists created officers and skipped user ids.
type BulkCreateOfficerResponse struct {
	Created []models.Officer `json:"created"`
	Skipped []int64          `json:"skipped"`
}

// UpdateOfficerRequest changes officer fields; nil fields are left unchanged.
type UpdateOfficerRequest struct {
	FullName      *string `json:"full_name" validate:"omitempty,min=1,max=200"`
	Email         *string `json:"email" validate:"omitempty,email"`
	StudentNumber *string `json:"student_number" validate:"omitempty,max=50"`
	Year          *string `json:"year" validate:"omitempty,max=50"`
	Block         *string `json:"block" validate:"omitempty,max=50"`
	Position      *string `json:"position" validate:"omitempty,min=1,max=100"`
}
