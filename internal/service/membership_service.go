package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/specs-nexus-api/internal/dto"
	"github.com/noah-isme/specs-nexus-api/internal/models"
	"github.com/noah-isme/specs-nexus-api/internal/repository"
	appErrors "github.com/noah-isme/specs-nexus-api/pkg/errors"
	"github.com/noah-isme/specs-nexus-api/pkg/export"
	"github.com/noah-isme/specs-nexus-api/pkg/storage"
)

type clearanceRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Clearance, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Clearance, error)
	List(ctx context.Context, filter models.ClearanceFilter) ([]models.ClearanceWithUser, int, error)
	ListAll(ctx context.Context, filter models.ClearanceFilter) ([]models.ClearanceWithUser, error)
	Create(ctx context.Context, clearance *models.Clearance) error
	SaveState(ctx context.Context, clearance *models.Clearance) error
	CreateRequirementForAll(ctx context.Context, requirement string, amount float64, at time.Time) (int, error)
	ListRequirements(ctx context.Context) ([]models.RequirementSummary, error)
	UpdateRequirementAmount(ctx context.Context, requirement string, amount float64, at time.Time) (int64, error)
	ArchiveRequirement(ctx context.Context, requirement string, at time.Time) (int64, error)
}

type qrCodeRepository interface {
	Get(ctx context.Context) (*models.QRCode, error)
	SetURL(ctx context.Context, method models.PaymentMethod, url string, at time.Time) (*models.QRCode, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

type exportRenderer interface {
	Render(format string, name string, report export.Report) (*ExportFile, error)
}

// MembershipService drives clearances through their payment lifecycle.
type MembershipService struct {
	clearances clearanceRepository
	qrcodes    qrCodeRepository
	users      userLookup
	uploader   imageUploader
	cache      cacheInvalidator
	exporter   exportRenderer
	validator  *validator.Validate
	logger     *zap.Logger
	location   *time.Location
	now        func() time.Time
}

// MembershipDeps groups the collaborators of MembershipService.
type MembershipDeps struct {
	Clearances clearanceRepository
	QRCodes    qrCodeRepository
	Users      userLookup
	Uploader   imageUploader
	Cache      cacheInvalidator
	Exporter   exportRenderer
}

// NewMembershipService constructs the service. Payment dates are recorded in loc.
func NewMembershipService(deps MembershipDeps, validate *validator.Validate, logger *zap.Logger, loc *time.Location) *MembershipService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &MembershipService{
		clearances: deps.Clearances,
		qrcodes:    deps.QRCodes,
		users:      deps.Users,
		uploader:   deps.Uploader,
		cache:      deps.Cache,
		exporter:   deps.Exporter,
		validator:  validate,
		logger:     logger,
		location:   loc,
		now:        time.Now,
	}
}

// QRCode returns the stored payment QR image for method.
func (s *MembershipService) QRCode(ctx context.Context, method models.PaymentMethod) (*dto.QRCodeResponse, error) {
	method, err := normalizeMethod(method)
	if err != nil {
		return nil, err
	}
	record, err := s.qrcodes.Get(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "No QR code record found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load qr code")
	}
	url := record.URLFor(method)
	if url == nil || *url == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("No QR code uploaded for %s", method))
	}
	return &dto.QRCodeResponse{PaymentType: method, QRCodeURL: *url}, nil
}

// UploadQRCode replaces the QR image for method.
func (s *MembershipService) UploadQRCode(ctx context.Context, method models.PaymentMethod, image ImageUpload) (*dto.QRCodeResponse, error) {
	method, err := normalizeMethod(method)
	if err != nil {
		return nil, err
	}
	url, err := s.uploader.UploadImage(ctx, storage.FolderQRCodes, image.Filename, image.Reader, true)
	if err != nil {
		return nil, err
	}
	if _, err := s.qrcodes.SetURL(ctx, method, url, s.now().UTC()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save qr code")
	}
	s.logger.Info("qr code updated", zap.String("payment_type", string(method)))
	return &dto.QRCodeResponse{PaymentType: method, QRCodeURL: url}, nil
}

// ListForUser returns the active clearances of userID. Callers may only read their own.
func (s *MembershipService) ListForUser(ctx context.Context, callerID, userID int64) ([]models.Clearance, error) {
	if callerID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Not authorized to access this user's memberships")
	}
	clearances, err := s.clearances.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list memberships")
	}
	return clearances, nil
}

// ClearanceStatus returns the compact status list for userID.
func (s *MembershipService) ClearanceStatus(ctx context.Context, callerID, userID int64) ([]dto.ClearanceStatusView, error) {
	if callerID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Not authorized to access this user's clearance")
	}
	clearances, err := s.clearances.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list clearances")
	}
	views := make([]dto.ClearanceStatusView, 0, len(clearances))
	for _, c := range clearances {
		views = append(views, dto.ClearanceStatusView{ID: c.ID, Requirement: c.Requirement, Status: c.Status, PaymentStatus: c.PaymentStatus})
	}
	return views, nil
}

// UploadReceiptFile stores a receipt image and returns its public URL.
func (s *MembershipService) UploadReceiptFile(ctx context.Context, image ImageUpload) (*dto.FileUploadResponse, error) {
	url, err := s.uploader.UploadImage(ctx, storage.FolderReceipts, image.Filename, image.Reader, false)
	if err != nil {
		return nil, err
	}
	return &dto.FileUploadResponse{FilePath: url}, nil
}

// UpdateReceipt submits a receipt for the caller's clearance.
func (s *MembershipService) UpdateReceipt(ctx context.Context, callerID int64, req dto.UpdateReceiptRequest) (*models.Clearance, error) {
	req.PaymentType = models.PaymentMethod(strings.ToLower(strings.TrimSpace(string(req.PaymentType))))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid receipt payload")
	}
	clearance, err := s.findClearance(ctx, req.MembershipID)
	if err != nil {
		return nil, err
	}
	if clearance.UserID != callerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Not authorized to update this membership")
	}
	if err := clearance.SubmitReceipt(req.PaymentType, req.ReceiptPath, s.now().In(s.location)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "Invalid payment_type")
	}
	if err := s.saveState(ctx, clearance); err != nil {
		return nil, err
	}
	s.logger.Info("receipt submitted", zap.Int64("user_id", callerID), zap.Int64("membership_id", clearance.ID))
	return clearance, nil
}

// Receipt returns the receipt of a clearance to its owner or to an officer.
func (s *MembershipService) Receipt(ctx context.Context, claims *models.JWTClaims, membershipID int64) (*dto.ReceiptResponse, error) {
	clearance, err := s.findClearance(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if claims == nil || (!claims.IsOfficer() && clearance.UserID != claims.UserID) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "Not authorized to view this receipt")
	}
	if clearance.ReceiptPath == nil || *clearance.ReceiptPath == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "No receipt found for this membership")
	}
	return &dto.ReceiptResponse{
		MembershipID:  clearance.ID,
		ReceiptURL:    *clearance.ReceiptPath,
		PaymentMethod: clearance.PaymentMethod,
		PaymentStatus: clearance.PaymentStatus,
		PaymentDate:   clearance.PaymentDate,
		ApprovalDate:  clearance.ApprovalDate,
	}, nil
}

// List returns clearances joined with their owners for officers.
func (s *MembershipService) List(ctx context.Context, filter models.ClearanceFilter) ([]models.ClearanceWithUser, *models.Pagination, error) {
	if filter.PaymentStatus != "" && !filter.PaymentStatus.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid payment_status")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	rows, total, err := s.clearances.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list memberships")
	}
	return rows, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Create records a clearance for one user with an officer-chosen payment status.
func (s *MembershipService) Create(ctx context.Context, req dto.CreateClearanceRequest) (*models.Clearance, error) {
	req.Requirement = strings.TrimSpace(req.Requirement)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid membership payload")
	}
	if _, err := s.users.FindByID(ctx, req.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "User not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	now := s.now().UTC()
	clearance := models.NewClearance(req.UserID, req.Requirement, req.Amount, now)
	if req.PaymentStatus != "" {
		if err := clearance.SetPaymentStatus(req.PaymentStatus, now.In(s.location)); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment_status")
		}
	}
	if err := s.clearances.Create(ctx, clearance); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "user already has this requirement")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create membership")
	}
	s.invalidateDashboard(ctx)
	return clearance, nil
}

// Verify approves or denies a submitted receipt.
func (s *MembershipService) Verify(ctx context.Context, membershipID int64, req dto.VerifyClearanceRequest) (*models.Clearance, error) {
	req.Action = models.VerifyAction(strings.ToLower(strings.TrimSpace(string(req.Action))))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "Invalid action. Use 'approve' or 'deny'.")
	}
	var reason string
	if req.DenialReason != nil {
		reason = strings.TrimSpace(*req.DenialReason)
	}
	if req.Action == models.VerifyDeny && reason == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "denial_reason is required when denying")
	}
	clearance, err := s.clearances.FindByID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Membership record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load membership")
	}
	now := s.now().UTC()
	switch req.Action {
	case models.VerifyApprove:
		clearance.Approve(now.In(s.location))
	case models.VerifyDeny:
		clearance.Deny(reason, now)
	}
	if err := s.saveState(ctx, clearance); err != nil {
		return nil, err
	}
	s.logger.Info("membership verified", zap.Int64("membership_id", membershipID), zap.String("action", string(req.Action)))
	return clearance, nil
}

// Requirements summarises the active requirements.
func (s *MembershipService) Requirements(ctx context.Context) ([]models.RequirementSummary, error) {
	summaries, err := s.clearances.ListRequirements(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requirements")
	}
	return summaries, nil
}

// CreateRequirement issues requirement to every user lacking it.
func (s *MembershipService) CreateRequirement(ctx context.Context, req dto.CreateRequirementRequest) (*dto.RequirementCreated, error) {
	req.Requirement = strings.TrimSpace(req.Requirement)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid requirement payload")
	}
	created, err := s.clearances.CreateRequirementForAll(ctx, req.Requirement, req.Amount, s.now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create requirement")
	}
	if created == 0 {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "Requirement already exists for all users")
	}
	s.invalidateDashboard(ctx)
	s.logger.Info("requirement issued", zap.String("requirement", req.Requirement), zap.Int("created", created))
	return &dto.RequirementCreated{Requirement: req.Requirement, Created: created}, nil
}

// UpdateRequirement changes the amount of every active row of requirement.
func (s *MembershipService) UpdateRequirement(ctx context.Context, requirement string, req dto.UpdateRequirementRequest) (*dto.RequirementChanged, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid requirement payload")
	}
	affected, err := s.clearances.UpdateRequirementAmount(ctx, requirement, req.Amount, s.now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update requirement")
	}
	if affected == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Requirement not found")
	}
	return &dto.RequirementChanged{Requirement: requirement, Affected: affected}, nil
}

// ArchiveRequirement archives every active row of requirement.
func (s *MembershipService) ArchiveRequirement(ctx context.Context, requirement string) (*dto.RequirementChanged, error) {
	affected, err := s.clearances.ArchiveRequirement(ctx, requirement, s.now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive requirement")
	}
	if affected == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Requirement not found")
	}
	s.invalidateDashboard(ctx)
	return &dto.RequirementChanged{Requirement: requirement, Affected: affected}, nil
}

var clearanceExportHeaders = []string{"ID", "Full Name", "Student Number", "Year", "Block", "Requirement", "Amount", "Payment Status", "Status", "Payment Method", "Payment Date", "Approval Date", "Denial Reason"}

// Export renders the officer clearance listing as a file.
func (s *MembershipService) Export(ctx context.Context, format string, filter models.ClearanceFilter) (*ExportFile, error) {
	if filter.PaymentStatus != "" && !filter.PaymentStatus.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid payment_status")
	}
	rows, err := s.clearances.ListAll(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export memberships")
	}
	dataRows := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		method := ""
		if row.PaymentMethod != nil {
			method = string(*row.PaymentMethod)
		}
		reason := ""
		if row.DenialReason != nil {
			reason = *row.DenialReason
		}
		dataRows = append(dataRows, map[string]string{
			"ID":             fmt.Sprintf("%d", row.ID),
			"Full Name":      row.UserFullName,
			"Student Number": row.UserStudentNumber,
			"Year":           row.UserYear,
			"Block":          row.UserBlock,
			"Requirement":    row.Requirement,
			"Amount":         fmt.Sprintf("%.2f", row.Amount),
			"Payment Status": string(row.PaymentStatus),
			"Status":         string(row.Status),
			"Payment Method": method,
			"Payment Date":   formatReportTime(row.PaymentDate, s.location),
			"Approval Date":  formatReportTime(row.ApprovalDate, s.location),
			"Denial Reason":  reason,
		})
	}
	report := export.Report{
		Title:    "Membership Clearances",
		Sections: []export.Dataset{{Title: "Clearances", Headers: clearanceExportHeaders, Rows: dataRows}},
	}
	return s.exporter.Render(format, "membership_clearances", report)
}

func (s *MembershipService) findClearance(ctx context.Context, id int64) (*models.Clearance, error) {
	clearance, err := s.clearances.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Membership not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load membership")
	}
	return clearance, nil
}

func (s *MembershipService) saveState(ctx context.Context, clearance *models.Clearance) error {
	if !clearance.Consistent() {
		return appErrors.New(appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "inconsistent clearance state")
	}
	if err := s.clearances.SaveState(ctx, clearance); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save membership")
	}
	s.invalidateDashboard(ctx)
	return nil
}

func (s *MembershipService) invalidateDashboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateDashboards(ctx); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

func normalizeMethod(method models.PaymentMethod) (models.PaymentMethod, error) {
	method = models.PaymentMethod(strings.ToLower(strings.TrimSpace(string(method))))
	if !method.Valid() {
		return "", appErrors.Clone(appErrors.ErrValidation, "Payment type must be 'gcash' or 'paymaya'")
	}
	return method, nil
}

func formatReportTime(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format("2006-01-02 15:04")
}
