package models

import (
	"fmt"
	"time"
)

// PaymentStatus is the money-side state of a clearance.
type PaymentStatus string

const (
	PaymentNotPaid   PaymentStatus = "Not Paid"
	PaymentVerifying PaymentStatus = "Verifying"
	PaymentPaid      PaymentStatus = "Paid"
)

// ClearanceStatus is the officer-facing state of a clearance.
type ClearanceStatus string

const (
	ClearanceNotYetCleared ClearanceStatus = "Not Yet Cleared"
	ClearanceProcessing    ClearanceStatus = "Processing"
	ClearanceClear         ClearanceStatus = "Clear"
)

// Requirement names that split analytics by semester.
const (
	RequirementFirstSemester  = "1st Semester Membership"
	RequirementSecondSemester = "2nd Semester Membership"
)

// VerifyAction is the officer decision on a submitted receipt.
type VerifyAction string

const (
	VerifyApprove VerifyAction = "approve"
	VerifyDeny    VerifyAction = "deny"
)

var clearanceStates = map[PaymentStatus]ClearanceStatus{
	PaymentNotPaid:   ClearanceNotYetCleared,
	PaymentVerifying: ClearanceProcessing,
	PaymentPaid:      ClearanceClear,
}

// StatusFor returns the clearance status paired with a payment status.
func StatusFor(ps PaymentStatus) (ClearanceStatus, error) {
	status, ok := clearanceStates[ps]
	if !ok {
		return "", fmt.Errorf("unknown payment status %q", ps)
	}
	return status, nil
}

// Valid reports whether ps is one of the three payment statuses.
func (ps PaymentStatus) Valid() bool {
	_, ok := clearanceStates[ps]
	return ok
}

// Clearance is a user's record for one requirement. Status fields must only
// be changed through the transition methods so they stay paired.
type Clearance struct {
	ID            int64           `db:"id" json:"id"`
	UserID        int64           `db:"user_id" json:"user_id"`
	Requirement   string          `db:"requirement" json:"requirement"`
	Amount        float64         `db:"amount" json:"amount"`
	PaymentStatus PaymentStatus   `db:"payment_status" json:"payment_status"`
	Status        ClearanceStatus `db:"status" json:"status"`
	PaymentMethod *PaymentMethod  `db:"payment_method" json:"payment_method"`
	ReceiptPath   *string         `db:"receipt_path" json:"receipt_path"`
	PaymentDate   *time.Time      `db:"payment_date" json:"payment_date"`
	ApprovalDate  *time.Time      `db:"approval_date" json:"approval_date"`
	DenialReason  *string         `db:"denial_reason" json:"denial_reason"`
	Archived      bool            `db:"archived" json:"archived"`
	LastUpdated   time.Time       `db:"last_updated" json:"last_updated"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// NewClearance creates an unpaid clearance for user against requirement.
func NewClearance(userID int64, requirement string, amount float64, at time.Time) *Clearance {
	return &Clearance{
		UserID:        userID,
		Requirement:   requirement,
		Amount:        amount,
		PaymentStatus: PaymentNotPaid,
		Status:        ClearanceNotYetCleared,
		LastUpdated:   at,
		CreatedAt:     at,
	}
}

// SetPaymentStatus forces the pair for ps. Used by officers when recording a
// clearance directly. A Paid row without a payment date takes at as one.
func (c *Clearance) SetPaymentStatus(ps PaymentStatus, at time.Time) error {
	status, err := StatusFor(ps)
	if err != nil {
		return err
	}
	c.PaymentStatus = ps
	c.Status = status
	if ps == PaymentPaid {
		c.stampPayment(at)
	}
	c.LastUpdated = at
	return nil
}

// SubmitReceipt moves the clearance to Verifying/Processing. paidAt is the
// payment timestamp in the organization's time zone.
func (c *Clearance) SubmitReceipt(method PaymentMethod, receiptPath string, paidAt time.Time) error {
	if !method.Valid() {
		return fmt.Errorf("unsupported payment method %q", method)
	}
	c.PaymentStatus = PaymentVerifying
	c.Status = ClearanceProcessing
	c.PaymentMethod = &method
	c.ReceiptPath = &receiptPath
	c.PaymentDate = &paidAt
	c.DenialReason = nil
	c.LastUpdated = paidAt
	return nil
}

// Approve marks the clearance paid and clear. at should be in the
// organization's time zone since it doubles as the payment date when no
// receipt was submitted.
func (c *Clearance) Approve(at time.Time) {
	c.PaymentStatus = PaymentPaid
	c.Status = ClearanceClear
	c.stampPayment(at)
	c.ApprovalDate = &at
	c.DenialReason = nil
	c.LastUpdated = at
}

// stampPayment keeps Paid rows inside the analytics window, which is keyed
// on payment_date.
func (c *Clearance) stampPayment(at time.Time) {
	if c.PaymentDate == nil {
		paid := at
		c.PaymentDate = &paid
	}
}

// Deny rejects the submitted receipt and resets the payment details.
func (c *Clearance) Deny(reason string, at time.Time) {
	c.PaymentStatus = PaymentNotPaid
	c.Status = ClearanceNotYetCleared
	c.ReceiptPath = nil
	c.PaymentMethod = nil
	c.PaymentDate = nil
	c.DenialReason = &reason
	c.LastUpdated = at
}

// Consistent reports whether the status pair is one of the allowed combinations.
func (c *Clearance) Consistent() bool {
	status, ok := clearanceStates[c.PaymentStatus]
	return ok && status == c.Status
}

// ClearanceWithUser is a clearance joined with its owner for officer listings.
type ClearanceWithUser struct {
	Clearance
	UserFullName      string `db:"user_full_name" json:"user_full_name"`
	UserEmail         string `db:"user_email" json:"user_email"`
	UserStudentNumber string `db:"user_student_number" json:"user_student_number"`
	UserYear          string `db:"user_year" json:"user_year"`
	UserBlock         string `db:"user_block" json:"user_block"`
}

// ClearanceFilter scopes officer clearance listings.
type ClearanceFilter struct {
	Requirement     string
	PaymentStatus   PaymentStatus
	IncludeArchived bool
	Page            int
	PageSize        int
}

// RequirementSummary aggregates non-archived clearances sharing a requirement.
type RequirementSummary struct {
	Requirement string  `db:"requirement" json:"requirement"`
	Amount      float64 `db:"amount" json:"amount"`
	Total       int     `db:"total" json:"total"`
	Paid        int     `db:"paid" json:"paid"`
	Verifying   int     `db:"verifying" json:"verifying"`
	NotPaid     int     `db:"not_paid" json:"not_paid"`
}
