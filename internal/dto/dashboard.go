package dto

import "time"

// DashboardRequest carries the optional reporting window. Dates accept
// RFC3339 timestamps or plain YYYY-MM-DD.
type DashboardRequest struct {
	StartDate       *string `json:"start_date" form:"start_date"`
	EndDate         *string `json:"end_date" form:"end_date"`
	IncludeArchived *bool   `json:"include_archived" form:"include_archived"`
}

// DashboardResponse is the full analytics report.
type DashboardResponse struct {
	Window             DashboardWindow    `json:"window"`
	MembershipInsights MembershipInsights `json:"membershipInsights"`
	PaymentAnalytics   PaymentAnalytics   `json:"paymentAnalytics"`
	EventsEngagement   EventsEngagement   `json:"eventsEngagement"`
	ClearanceTracking  ClearanceTracking  `json:"clearanceTracking"`
	GeneratedAt        time.Time          `json:"generatedAt"`
}

// DashboardWindow echoes the resolved filter.
type DashboardWindow struct {
	StartDate       time.Time `json:"startDate"`
	EndDate         time.Time `json:"endDate"`
	IncludeArchived bool      `json:"includeArchived"`
}

// MembershipInsights summarises who is a member and who is active.
type MembershipInsights struct {
	TotalStudents           int            `json:"totalStudents"`
	TotalMembers            int            `json:"totalMembers"`
	TotalMembersFirstSem    int            `json:"totalMembersFirstSem"`
	TotalMembersSecondSem   int            `json:"totalMembersSecondSem"`
	NonMembers              int            `json:"nonMembers"`
	NonMembersFirstSem      int            `json:"nonMembersFirstSem"`
	NonMembersSecondSem     int            `json:"nonMembersSecondSem"`
	ActiveMembers           int            `json:"activeMembers"`
	InactiveMembers         int            `json:"inactiveMembers"`
	RecentActivityLast7Days int            `json:"recentActivityLast7Days"`
	MembersByRequirement    map[string]int `json:"membersByRequirement"`
	NoUsers                 bool           `json:"noUsers"`
}

// PaymentStatusCounts tallies clearances per payment status.
type PaymentStatusCounts struct {
	NotPaid   int `json:"notPaid"`
	Verifying int `json:"verifying"`
	Paid      int `json:"paid"`
}

// PaymentMethodUsage counts clearances paid through one method.
type PaymentMethodUsage struct {
	Method         string `json:"method"`
	Count          int    `json:"count"`
	FirstSemCount  int    `json:"firstSemCount"`
	SecondSemCount int    `json:"secondSemCount"`
}

// PaymentAnalytics breaks clearances down by payment state and method.
type PaymentAnalytics struct {
	Overall        PaymentStatusCounts  `json:"overall"`
	FirstSemester  PaymentStatusCounts  `json:"firstSemester"`
	SecondSemester PaymentStatusCounts  `json:"secondSemester"`
	PaymentMethods []PaymentMethodUsage `json:"paymentMethods"`
	// requirement -> year level -> payment status -> count
	ByRequirementAndYear map[string]map[string]map[string]int `json:"byRequirementAndYear"`
}

// EventEngagement is one event's participation figures.
type EventEngagement struct {
	ID                int64      `json:"id"`
	Title             string     `json:"title"`
	Date              *time.Time `json:"date,omitempty"`
	ParticipantCount  int        `json:"participantCount"`
	ParticipationRate float64    `json:"participationRate"`
}

// EventsEngagement summarises participation across events.
type EventsEngagement struct {
	Events          []EventEngagement            `json:"events"`
	PopularEvents   []EventEngagement            `json:"popularEvents"`
	BreakdownByYear map[string][]EventEngagement `json:"breakdownByYear"`
}

// ClearanceStatusCounts tallies clearances per clearance status.
type ClearanceStatusCounts struct {
	Clear         int `json:"clear"`
	Processing    int `json:"processing"`
	NotYetCleared int `json:"notYetCleared"`
}

// ClearanceTracking shows compliance per requirement and per year level.
type ClearanceTracking struct {
	ByRequirement    map[string]ClearanceStatusCounts `json:"byRequirement"`
	ComplianceByYear map[string]ClearanceStatusCounts `json:"complianceByYear"`
}
