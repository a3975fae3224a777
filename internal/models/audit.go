package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin               = "LOGIN"
	AuditActionOfficerLogin        = "OFFICER_LOGIN"
	AuditActionClearanceCreate     = "CLEARANCE_CREATE"
	AuditActionClearanceVerify     = "CLEARANCE_VERIFY"
	AuditActionRequirementCreate   = "REQUIREMENT_CREATE"
	AuditActionRequirementUpdate   = "REQUIREMENT_UPDATE"
	AuditActionRequirementArchive  = "REQUIREMENT_ARCHIVE"
	AuditActionOfficerCreate       = "OFFICER_CREATE"
	AuditActionOfficerUpdate       = "OFFICER_UPDATE"
	AuditActionOfficerDelete       = "OFFICER_DELETE"
	AuditActionEventCreate         = "EVENT_CREATE"
	AuditActionEventUpdate         = "EVENT_UPDATE"
	AuditActionEventArchive        = "EVENT_ARCHIVE"
	AuditActionAnnouncementCreate  = "ANNOUNCEMENT_CREATE"
	AuditActionAnnouncementUpdate  = "ANNOUNCEMENT_UPDATE"
	AuditActionAnnouncementArchive = "ANNOUNCEMENT_ARCHIVE"
	AuditActionQRCodeUpload        = "QRCODE_UPLOAD"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         int64     `db:"id" json:"id"`
	ActorType  UserRole  `db:"actor_type" json:"actor_type"`
	ActorID    *int64    `db:"actor_id" json:"actor_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
