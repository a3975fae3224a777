package dto

import (
	"time"

	"github.com/noah-isme/specs-nexus-api/internal/models"
)

// UpdateReceiptRequest submits a payment receipt for a clearance.
type UpdateReceiptRequest struct {
	MembershipID int64                `json:"membership_id" validate:"required,gt=0"`
	PaymentType  models.PaymentMethod `json:"payment_type" validate:"required,oneof=gcash paymaya"`
	ReceiptPath  string               `json:"receipt_path" validate:"required,url|startswith=/"`
}

// CreateClearanceRequest records a clearance for one user.
type CreateClearanceRequest struct {
	UserID        int64                `json:"user_id" validate:"required,gt=0"`
	Requirement   string               `json:"requirement" validate:"required,max=200"`
	Amount        float64              `json:"amount" validate:"gte=0"`
	PaymentStatus models.PaymentStatus `json:"payment_status" validate:"omitempty,oneof='Not Paid' Verifying Paid"`
}

// VerifyClearanceRequest is an officer decision on a receipt.
type VerifyClearanceRequest struct {
	Action       models.VerifyAction `json:"action" validate:"required,oneof=approve deny"`
	DenialReason *string             `json:"denial_reason" validate:"required_if=Action deny,omitempty,max=500"`
}

// CreateRequirementRequest issues a requirement to every user.
type CreateRequirementRequest struct {
	Requirement string  `json:"requirement" validate:"required,max=200"`
	Amount      float64 `json:"amount" validate:"gte=0"`
}

// UpdateRequirementRequest changes the amount of a requirement.
type UpdateRequirementRequest struct {
	Amount float64 `json:"amount" validate:"gte=0"`
}

// RequirementCreated reports the outcome of a bulk requirement issue.
type RequirementCreated struct {
	Requirement string `json:"requirement"`
	Created     int    `json:"created"`
}

// RequirementChanged reports how many clearances a requirement action touched.
type RequirementChanged struct {
	Requirement string `json:"requirement"`
	Affected    int64  `json:"affected"`
}

// FileUploadResponse returns the public URL of an uploaded file.
type FileUploadResponse struct {
	FilePath string `json:"file_path"`
}

// QRCodeResponse returns the QR image for a payment method.
type QRCodeResponse struct {
	PaymentType models.PaymentMethod `json:"payment_type"`
	QRCodeURL   string               `json:"qr_code_url"`
}

// ReceiptResponse returns the receipt attached to a clearance.
type ReceiptResponse struct {
	MembershipID  int64                 `json:"membership_id"`
	ReceiptURL    string                `json:"receipt_url"`
	PaymentMethod *models.PaymentMethod `json:"payment_method"`
	PaymentStatus models.PaymentStatus  `json:"payment_status"`
	PaymentDate   *time.Time            `json:"payment_date"`
	ApprovalDate  *time.Time            `json:"approval_date"`
}

// ClearanceStatusView is the compact per-requirement status list.
type ClearanceStatusView struct {
	ID            int64                  `json:"id"`
	Requirement   string                 `json:"requirement"`
	Status        models.ClearanceStatus `json:"status"`
	PaymentStatus models.PaymentStatus   `json:"payment_status"`
}
