package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/specs-nexus-api/internal/dto"
	"github.com/noah-isme/specs-nexus-api/internal/models"
	appErrors "github.com/noah-isme/specs-nexus-api/pkg/errors"
	"github.com/noah-isme/specs-nexus-api/pkg/llm"
)

type chatCompleter interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

type chatEventSource interface {
	ListForUser(ctx context.Context, userID int64) ([]models.EventView, error)
}

type chatAnnouncementSource interface {
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, error)
}

type chatClearanceSource interface {
	ListByUser(ctx context.Context, userID int64) ([]models.Clearance, error)
}

type chatOfficerSource interface {
	List(ctx context.Context) ([]models.Officer, error)
}

// ChatDeps groups the data sources the assistant reads from.
type ChatDeps struct {
	Events        chatEventSource
	Announcements chatAnnouncementSource
	Clearances    chatClearanceSource
	Officers      chatOfficerSource
	Completer     chatCompleter
}

// ChatService answers member questions using the organization's live data as context.
type ChatService struct {
	deps      ChatDeps
	orgName   string
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	location  *time.Location
	now       func() time.Time
}

// NewChatService constructs the assistant.
func NewChatService(deps ChatDeps, orgName string, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, loc *time.Location) *ChatService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	if orgName == "" {
		orgName = "SPECS"
	}
	return &ChatService{deps: deps, orgName: orgName, metrics: metrics, validator: validate, logger: logger, location: loc, now: time.Now}
}

// Reply answers req on behalf of callerID. The request must name the caller.
func (s *ChatService) Reply(ctx context.Context, callerID int64, req dto.ChatRequest) (*dto.ChatResponse, error) {
	req.Message = strings.TrimSpace(req.Message)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid chat payload")
	}
	if req.UserID != callerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Unauthorized user ID")
	}

	snapshot, err := s.snapshot(ctx, callerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load chat context")
	}
	messages := []llm.Message{
		{Role: "system", Content: buildChatPrompt(s.orgName, snapshot, s.now(), s.location)},
		{Role: "user", Content: req.Message},
	}

	start := time.Now()
	answer, err := s.deps.Completer.Complete(ctx, messages)
	s.metrics.ObserveUpstream("llm", time.Since(start), err)
	if err != nil {
		s.logger.Error("chat completion failed", zap.Int64("user_id", callerID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to get chat response")
	}
	return &dto.ChatResponse{Response: answer}, nil
}

type chatSnapshot struct {
	events        []models.EventView
	announcements []models.Announcement
	clearances    []models.Clearance
	officers      []models.Officer
}

func (s *ChatService) snapshot(ctx context.Context, userID int64) (chatSnapshot, error) {
	var (
		snap chatSnapshot
		err  error
	)
	if snap.events, err = s.deps.Events.ListForUser(ctx, userID); err != nil {
		return snap, fmt.Errorf("load events: %w", err)
	}
	if snap.announcements, err = s.deps.Announcements.List(ctx, models.AnnouncementFilter{}); err != nil {
		return snap, fmt.Errorf("load announcements: %w", err)
	}
	if snap.clearances, err = s.deps.Clearances.ListByUser(ctx, userID); err != nil {
		return snap, fmt.Errorf("load clearances: %w", err)
	}
	if snap.officers, err = s.deps.Officers.List(ctx); err != nil {
		return snap, fmt.Errorf("load officers: %w", err)
	}
	return snap, nil
}

func formatPromptTime(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "Not specified"
	}
	return t.In(loc).Format("Jan 2, 2006 3:04 PM")
}

func orNone(value string) string {
	if strings.TrimSpace(value) == "" {
		return "None"
	}
	return value
}

func buildChatPrompt(orgName string, snap chatSnapshot, now time.Time, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the %s Nexus assistant. %s Nexus is the membership portal of the %s student organization. ", orgName, orgName, orgName)
	b.WriteString("Members use it to view their dashboard and profile, join events, read announcements, and settle membership clearances. ")
	b.WriteString("Clearances are paid through GCash or PayMaya. After paying, a member uploads a receipt and the clearance moves to Verifying until an officer approves it (Clear) or denies it (Not Yet Cleared).\n\n")
	fmt.Fprintf(&b, "Current time: %s\n\n", now.In(loc).Format("Jan 2, 2006 3:04 PM"))

	b.WriteString("**Events**:\n")
	if len(snap.events) == 0 {
		b.WriteString("No events available.\n")
	}
	for _, e := range snap.events {
		joined := "No"
		if e.IsParticipant {
			joined = "Yes"
		}
		fmt.Fprintf(&b, "## %s\n  - Description: %s\n  - Date: %s\n  - Location: %s\n  - Participants: %d\n  - Registration: %s (%s to %s)\n  - Registered: %s\n",
			e.Title, orNone(e.Description), formatPromptTime(e.Date, loc), orNone(e.Location), e.ParticipantCount,
			e.RegistrationStatusAt(now), formatPromptTime(e.RegistrationStart, loc), formatPromptTime(e.RegistrationEnd, loc), joined)
	}

	b.WriteString("\n**Announcements**:\n")
	if len(snap.announcements) == 0 {
		b.WriteString("No announcements available.\n")
	}
	for _, a := range snap.announcements {
		fmt.Fprintf(&b, "## %s\n  - Description: %s\n  - Date: %s\n  - Location: %s\n",
			a.Title, orNone(a.Description), formatPromptTime(a.Date, loc), orNone(a.Location))
	}

	b.WriteString("\n**Your Clearances**:\n")
	if len(snap.clearances) == 0 {
		b.WriteString("No clearances available.\n")
	}
	for _, c := range snap.clearances {
		method := "None"
		if c.PaymentMethod != nil {
			method = string(*c.PaymentMethod)
		}
		reason := "None"
		if c.DenialReason != nil {
			reason = orNone(*c.DenialReason)
		}
		fmt.Fprintf(&b, "## Clearance %d\n  - Requirement: %s\n  - Amount: %.2f\n  - Payment Status: %s\n  - Status: %s\n  - Payment Method: %s\n  - Denial Reason: %s\n",
			c.ID, c.Requirement, c.Amount, c.PaymentStatus, c.Status, method, reason)
	}

	b.WriteString("\n**Officers**:\n")
	if len(snap.officers) == 0 {
		b.WriteString("No officers available.\n")
	}
	for _, o := range snap.officers {
		fmt.Fprintf(&b, "- **%s**: %s\n", o.FullName, orNone(o.Position))
	}

	b.WriteString("\nAnswering rules:\n")
	b.WriteString("- Use markdown. Give each event, announcement or clearance its own ## heading with indented bullet details.\n")
	b.WriteString("- List officers as \"- **Name**: Position\".\n")
	b.WriteString("- Only use the data above. If it does not answer the question, reply: \"I'm sorry, I do not have that information.\"\n")
	b.WriteString("- Keep answers short.\n")
	return b.String()
}
