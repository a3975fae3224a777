package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest authenticates a user by email or student number.
type LoginRequest struct {
	EmailOrStudentNumber string `json:"email_or_student_number" validate:"required"`
	Password             string `json:"password" validate:"required"`
	IP                   string `json:"-"`
	UserAgent            string `json:"-"`
}

// OfficerLoginRequest authenticates an officer.
type OfficerLoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// RegisterRequest creates a user account.
type RegisterRequest struct {
	FullName      string `json:"full_name" validate:"required,max=200"`
	Email         string `json:"email" validate:"required,email"`
	StudentNumber string `json:"student_number" validate:"required,max=50"`
	Year          string `json:"year" validate:"max=50"`
	Block         string `json:"block" validate:"max=50"`
	Password      string `json:"password" validate:"required,min=8"`
}

// UpdateProfileRequest changes the mutable profile fields.
type UpdateProfileRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,min=1,max=200"`
	Year     *string `json:"year" validate:"omitempty,max=50"`
	Block    *string `json:"block" validate:"omitempty,max=50"`
}

// LoginResponse returns the issued token.
type LoginResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresIn   int64    `json:"expires_in"`
	User        *User    `json:"user,omitempty"`
	Officer     *Officer `json:"officer,omitempty"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   int64    `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// IsOfficer reports whether the token belongs to an officer account.
func (c *JWTClaims) IsOfficer() bool {
	return c != nil && c.Role == RoleOfficer
}
