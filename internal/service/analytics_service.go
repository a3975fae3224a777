package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/specs-nexus-api/internal/dto"
	"github.com/noah-isme/specs-nexus-api/internal/models"
	appErrors "github.com/noah-isme/specs-nexus-api/pkg/errors"
	"github.com/noah-isme/specs-nexus-api/pkg/export"
)

const (
	defaultDashboardLookback = 2
	popularEventsLimit       = 5
	unknownEventYear         = "Unknown"
)

// AnalyticsRepository describes the persistence layer required by AnalyticsService.
type AnalyticsRepository interface {
	UserActivity(ctx context.Context, filter models.DashboardFilter, now time.Time) (models.UserActivityCounts, error)
	Membership(ctx context.Context, filter models.DashboardFilter) (models.MembershipCounts, error)
	MembershipByRequirement(ctx context.Context, filter models.DashboardFilter) ([]models.MembershipCounts, error)
	ClearanceBuckets(ctx context.Context, filter models.DashboardFilter) ([]models.ClearanceBucket, error)
	EventParticipation(ctx context.Context, filter models.DashboardFilter) ([]models.EventParticipation, error)
}

// AnalyticsService builds the officer dashboard with cache integration.
type AnalyticsService struct {
	repo     AnalyticsRepository
	cache    *CacheService
	metrics  *MetricsService
	exporter exportRenderer
	logger   *zap.Logger
	location *time.Location
	now      func() time.Time
}

// NewAnalyticsService constructs an analytics service. Zone-less dates are read in loc.
func NewAnalyticsService(repo AnalyticsRepository, cache *CacheService, metrics *MetricsService, exporter exportRenderer, logger *zap.Logger, loc *time.Location) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AnalyticsService{repo: repo, cache: cache, metrics: metrics, exporter: exporter, logger: logger, location: loc, now: time.Now}
}

// Dashboard returns the report for the requested window. The boolean indicates whether data originated from cache.
func (s *AnalyticsService) Dashboard(ctx context.Context, req dto.DashboardRequest) (*dto.DashboardResponse, bool, error) {
	now := s.now()
	filter, err := s.resolveWindow(req, now)
	if err != nil {
		return nil, false, err
	}

	cacheKey := DashboardKey{
		Start:           requestedBound(req.StartDate, filter.Start),
		End:             requestedBound(req.EndDate, filter.End),
		IncludeArchived: filter.IncludeArchived,
	}
	var cached dto.DashboardResponse
	if s.cache.GetDashboard(ctx, cacheKey, &cached) {
		return &cached, true, nil
	}

	start := time.Now()
	data, err := s.load(ctx, filter, now)
	if err != nil {
		s.logger.Error("dashboard query failed", zap.Error(err))
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build dashboard")
	}
	s.metrics.ObserveDBQuery("analytics_dashboard", time.Since(start))

	report := buildDashboard(filter, now, data)
	// write failures are logged by the cache and never fail the request
	_ = s.cache.SetDashboard(ctx, cacheKey, report)
	return &report, false, nil
}

// Export renders the dashboard as a flattened CSV or PDF report.
func (s *AnalyticsService) Export(ctx context.Context, format string, req dto.DashboardRequest) (*ExportFile, error) {
	report, _, err := s.Dashboard(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.exporter.Render(format, "dashboard", flattenDashboard(report))
}

func (s *AnalyticsService) resolveWindow(req dto.DashboardRequest, now time.Time) (models.DashboardFilter, error) {
	filter := models.DashboardFilter{
		Start: now.AddDate(-defaultDashboardLookback, 0, 0),
		End:   now,
	}
	if req.IncludeArchived != nil {
		filter.IncludeArchived = *req.IncludeArchived
	}
	if req.StartDate != nil && strings.TrimSpace(*req.StartDate) != "" {
		start, err := parseTime(*req.StartDate, s.location)
		if err != nil {
			return filter, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start_date")
		}
		filter.Start = start
	}
	if req.EndDate != nil && strings.TrimSpace(*req.EndDate) != "" {
		end, err := parseTime(*req.EndDate, s.location)
		if err != nil {
			return filter, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end_date")
		}
		if isDateOnly(*req.EndDate) {
			end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		filter.End = end
	}
	if filter.Start.After(filter.End) {
		return filter, appErrors.Clone(appErrors.ErrValidation, "start_date must not be after end_date")
	}
	filter.Start = filter.Start.UTC()
	filter.End = filter.End.UTC()
	return filter, nil
}

func isDateOnly(value string) bool {
	_, err := time.Parse("2006-01-02", strings.TrimSpace(value))
	return err == nil
}

type dashboardData struct {
	activity      models.UserActivityCounts
	overall       models.MembershipCounts
	byRequirement []models.MembershipCounts
	buckets       []models.ClearanceBucket
	events        []models.EventParticipation
}

func (s *AnalyticsService) load(ctx context.Context, filter models.DashboardFilter, now time.Time) (dashboardData, error) {
	var (
		data dashboardData
		err  error
	)
	if data.activity, err = s.repo.UserActivity(ctx, filter, now); err != nil {
		return data, err
	}
	if data.overall, err = s.repo.Membership(ctx, filter); err != nil {
		return data, err
	}
	if data.byRequirement, err = s.repo.MembershipByRequirement(ctx, filter); err != nil {
		return data, err
	}
	if data.buckets, err = s.repo.ClearanceBuckets(ctx, filter); err != nil {
		return data, err
	}
	if data.events, err = s.repo.EventParticipation(ctx, filter); err != nil {
		return data, err
	}
	return data, nil
}

func buildDashboard(filter models.DashboardFilter, now time.Time, data dashboardData) dto.DashboardResponse {
	report := dto.DashboardResponse{
		Window:      dto.DashboardWindow{StartDate: filter.Start, EndDate: filter.End, IncludeArchived: filter.IncludeArchived},
		GeneratedAt: now.UTC(),
	}
	report.MembershipInsights = buildMembershipInsights(data)
	report.PaymentAnalytics = buildPaymentAnalytics(data.buckets)
	report.EventsEngagement = buildEventsEngagement(data.events, data.overall.PaidMembers)
	report.ClearanceTracking = buildClearanceTracking(data.buckets)
	return report
}

func buildMembershipInsights(data dashboardData) dto.MembershipInsights {
	insights := dto.MembershipInsights{
		TotalStudents:           data.activity.Total,
		TotalMembers:            data.overall.PaidMembers,
		NonMembers:              data.overall.PendingOnly,
		ActiveMembers:           data.activity.Active,
		InactiveMembers:         data.activity.Total - data.activity.Active,
		RecentActivityLast7Days: data.activity.Recent,
		MembersByRequirement:    make(map[string]int),
		NoUsers:                 data.activity.Total == 0,
	}
	for _, row := range data.byRequirement {
		insights.MembersByRequirement[row.Requirement] = row.PaidMembers
		switch row.Requirement {
		case models.RequirementFirstSemester:
			insights.TotalMembersFirstSem = row.PaidMembers
			insights.NonMembersFirstSem = row.PendingOnly
		case models.RequirementSecondSemester:
			insights.TotalMembersSecondSem = row.PaidMembers
			insights.NonMembersSecondSem = row.PendingOnly
		}
	}
	return insights
}

func addPaymentStatus(counts *dto.PaymentStatusCounts, status models.PaymentStatus, n int) {
	switch status {
	case models.PaymentNotPaid:
		counts.NotPaid += n
	case models.PaymentVerifying:
		counts.Verifying += n
	case models.PaymentPaid:
		counts.Paid += n
	}
}

func buildPaymentAnalytics(buckets []models.ClearanceBucket) dto.PaymentAnalytics {
	analytics := dto.PaymentAnalytics{
		PaymentMethods:       make([]dto.PaymentMethodUsage, 0),
		ByRequirementAndYear: make(map[string]map[string]map[string]int),
	}
	methods := make(map[string]*dto.PaymentMethodUsage)
	for _, b := range buckets {
		addPaymentStatus(&analytics.Overall, b.PaymentStatus, b.Count)
		switch b.Requirement {
		case models.RequirementFirstSemester:
			addPaymentStatus(&analytics.FirstSemester, b.PaymentStatus, b.Count)
		case models.RequirementSecondSemester:
			addPaymentStatus(&analytics.SecondSemester, b.PaymentStatus, b.Count)
		}

		if b.PaymentMethod != "" {
			usage, ok := methods[b.PaymentMethod]
			if !ok {
				usage = &dto.PaymentMethodUsage{Method: b.PaymentMethod}
				methods[b.PaymentMethod] = usage
			}
			usage.Count += b.Count
			switch b.Requirement {
			case models.RequirementFirstSemester:
				usage.FirstSemCount += b.Count
			case models.RequirementSecondSemester:
				usage.SecondSemCount += b.Count
			}
		}

		years, ok := analytics.ByRequirementAndYear[b.Requirement]
		if !ok {
			years = make(map[string]map[string]int)
			analytics.ByRequirementAndYear[b.Requirement] = years
		}
		statuses, ok := years[b.Year]
		if !ok {
			statuses = map[string]int{
				string(models.PaymentNotPaid):   0,
				string(models.PaymentVerifying): 0,
				string(models.PaymentPaid):      0,
			}
			years[b.Year] = statuses
		}
		statuses[string(b.PaymentStatus)] += b.Count
	}
	for _, usage := range methods {
		analytics.PaymentMethods = append(analytics.PaymentMethods, *usage)
	}
	sort.Slice(analytics.PaymentMethods, func(i, j int) bool {
		a, b := analytics.PaymentMethods[i], analytics.PaymentMethods[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Method < b.Method
	})
	return analytics
}

// participationRate is participants as a percentage of paid members, rounded to 2 decimals.
func participationRate(participants, members int) float64 {
	if members <= 0 || participants <= 0 {
		return 0
	}
	return math.Round(float64(participants)/float64(members)*100*100) / 100
}

func buildEventsEngagement(events []models.EventParticipation, members int) dto.EventsEngagement {
	engagement := dto.EventsEngagement{
		Events:          make([]dto.EventEngagement, 0, len(events)),
		PopularEvents:   make([]dto.EventEngagement, 0, popularEventsLimit),
		BreakdownByYear: make(map[string][]dto.EventEngagement),
	}
	for _, e := range events {
		item := dto.EventEngagement{
			ID:                e.ID,
			Title:             e.Title,
			Date:              e.Date,
			ParticipantCount:  e.ParticipantCount,
			ParticipationRate: participationRate(e.ParticipantCount, members),
		}
		engagement.Events = append(engagement.Events, item)
		year := unknownEventYear
		if e.Date != nil {
			year = strconv.Itoa(e.Date.Year())
		}
		engagement.BreakdownByYear[year] = append(engagement.BreakdownByYear[year], item)
	}

	popular := make([]dto.EventEngagement, len(engagement.Events))
	copy(popular, engagement.Events)
	sort.SliceStable(popular, func(i, j int) bool {
		a, b := popular[i], popular[j]
		if a.ParticipantCount != b.ParticipantCount {
			return a.ParticipantCount > b.ParticipantCount
		}
		switch {
		case a.Date == nil:
			return false
		case b.Date == nil:
			return true
		default:
			return a.Date.Before(*b.Date)
		}
	})
	if len(popular) > popularEventsLimit {
		popular = popular[:popularEventsLimit]
	}
	engagement.PopularEvents = append(engagement.PopularEvents, popular...)
	return engagement
}

func addClearanceStatus(counts dto.ClearanceStatusCounts, status models.ClearanceStatus, n int) dto.ClearanceStatusCounts {
	switch status {
	case models.ClearanceClear:
		counts.Clear += n
	case models.ClearanceProcessing:
		counts.Processing += n
	case models.ClearanceNotYetCleared:
		counts.NotYetCleared += n
	}
	return counts
}

func buildClearanceTracking(buckets []models.ClearanceBucket) dto.ClearanceTracking {
	tracking := dto.ClearanceTracking{
		ByRequirement:    make(map[string]dto.ClearanceStatusCounts),
		ComplianceByYear: make(map[string]dto.ClearanceStatusCounts),
	}
	for _, b := range buckets {
		tracking.ByRequirement[b.Requirement] = addClearanceStatus(tracking.ByRequirement[b.Requirement], b.Status, b.Count)
		tracking.ComplianceByYear[b.Year] = addClearanceStatus(tracking.ComplianceByYear[b.Year], b.Status, b.Count)
	}
	return tracking
}

func flattenDashboard(report *dto.DashboardResponse) export.Report {
	m := report.MembershipInsights
	p := report.PaymentAnalytics
	metric := func(name string, value interface{}) map[string]string {
		return map[string]string{"Metric": name, "Value": fmt.Sprintf("%v", value)}
	}
	summary := []map[string]string{
		metric("Window Start", report.Window.StartDate.Format(time.RFC3339)),
		metric("Window End", report.Window.EndDate.Format(time.RFC3339)),
		metric("Include Archived", report.Window.IncludeArchived),
		metric("Total Students", m.TotalStudents),
		metric("Total Members", m.TotalMembers),
		metric("Members (1st Semester)", m.TotalMembersFirstSem),
		metric("Members (2nd Semester)", m.TotalMembersSecondSem),
		metric("Non-members", m.NonMembers),
		metric("Non-members (1st Semester)", m.NonMembersFirstSem),
		metric("Non-members (2nd Semester)", m.NonMembersSecondSem),
		metric("Active Members", m.ActiveMembers),
		metric("Inactive Members", m.InactiveMembers),
		metric("Active Last 7 Days", m.RecentActivityLast7Days),
		metric("Not Paid", p.Overall.NotPaid),
		metric("Verifying", p.Overall.Verifying),
		metric("Paid", p.Overall.Paid),
	}

	methods := make([]map[string]string, 0, len(p.PaymentMethods))
	for _, usage := range p.PaymentMethods {
		methods = append(methods, map[string]string{
			"Method":       usage.Method,
			"Count":        strconv.Itoa(usage.Count),
			"1st Semester": strconv.Itoa(usage.FirstSemCount),
			"2nd Semester": strconv.Itoa(usage.SecondSemCount),
		})
	}

	events := make([]map[string]string, 0, len(report.EventsEngagement.Events))
	for _, e := range report.EventsEngagement.Events {
		date := ""
		if e.Date != nil {
			date = e.Date.Format("2006-01-02")
		}
		events = append(events, map[string]string{
			"Event":              e.Title,
			"Date":               date,
			"Participants":       strconv.Itoa(e.ParticipantCount),
			"Participation Rate": strconv.FormatFloat(e.ParticipationRate, 'f', 2, 64),
		})
	}

	requirements := make([]string, 0, len(report.ClearanceTracking.ByRequirement))
	for name := range report.ClearanceTracking.ByRequirement {
		requirements = append(requirements, name)
	}
	sort.Strings(requirements)
	clearances := make([]map[string]string, 0, len(requirements))
	for _, name := range requirements {
		counts := report.ClearanceTracking.ByRequirement[name]
		clearances = append(clearances, map[string]string{
			"Requirement":     name,
			"Clear":           strconv.Itoa(counts.Clear),
			"Processing":      strconv.Itoa(counts.Processing),
			"Not Yet Cleared": strconv.Itoa(counts.NotYetCleared),
		})
	}

	return export.Report{
		Title: "Analytics Dashboard",
		Sections: []export.Dataset{
			{Title: "Summary", Headers: []string{"Metric", "Value"}, Rows: summary},
			{Title: "Payment Methods", Headers: []string{"Method", "Count", "1st Semester", "2nd Semester"}, Rows: methods},
			{Title: "Events", Headers: []string{"Event", "Date", "Participants", "Participation Rate"}, Rows: events},
			{Title: "Clearance Tracking", Headers: []string{"Requirement", "Clear", "Processing", "Not Yet Cleared"}, Rows: clearances},
		},
	}
}

// requestedBound is nil when the caller left the bound to its default.
func requestedBound(raw *string, resolved time.Time) *time.Time {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	return &resolved
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
