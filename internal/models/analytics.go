package models

import "time"

// DashboardFilter is the reporting window for the analytics dashboard.
type DashboardFilter struct {
	Start           time.Time
	End             time.Time
	IncludeArchived bool
}

// UserActivityCounts summarises registered users and recent activity.
type UserActivityCounts struct {
	Total  int `db:"total"`
	Active int `db:"active"`
	Recent int `db:"recent"`
}

// MembershipCounts holds distinct-user membership figures for one scope.
// Requirement is empty for the overall scope.
type MembershipCounts struct {
	Requirement string `db:"requirement"`
	PaidMembers int    `db:"paid_members"`
	PendingOnly int    `db:"pending_only"`
}

// ClearanceBucket is one group of clearances inside the reporting window,
// keyed by every dimension the dashboard breaks down on.
type ClearanceBucket struct {
	Requirement   string          `db:"requirement"`
	Year          string          `db:"year"`
	PaymentStatus PaymentStatus   `db:"payment_status"`
	Status        ClearanceStatus `db:"status"`
	PaymentMethod string          `db:"payment_method"`
	Count         int             `db:"total"`
}

// EventParticipation is an event with its participant tally.
type EventParticipation struct {
	ID               int64      `db:"id"`
	Title            string     `db:"title"`
	Date             *time.Time `db:"date"`
	ParticipantCount int        `db:"participant_count"`
}
