package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/specs-nexus-api/internal/dto"
	"github.com/noah-isme/specs-nexus-api/internal/models"
	"github.com/noah-isme/specs-nexus-api/internal/service"
	appErrors "github.com/noah-isme/specs-nexus-api/pkg/errors"
	"github.com/noah-isme/specs-nexus-api/pkg/response"
)

type membershipService interface {
	QRCode(ctx context.Context, method models.PaymentMethod) (*dto.QRCodeResponse, error)
	UploadQRCode(ctx context.Context, method models.PaymentMethod, image service.ImageUpload) (*dto.QRCodeResponse, error)
	ListForUser(ctx context.Context, callerID, userID int64) ([]models.Clearance, error)
	ClearanceStatus(ctx context.Context, callerID, userID int64) ([]dto.ClearanceStatusView, error)
	UploadReceiptFile(ctx context.Context, image service.ImageUpload) (*dto.FileUploadResponse, error)
	UpdateReceipt(ctx context.Context, callerID int64, req dto.UpdateReceiptRequest) (*models.Clearance, error)
	Receipt(ctx context.Context, claims *models.JWTClaims, membershipID int64) (*dto.ReceiptResponse, error)
	List(ctx context.Context, filter models.ClearanceFilter) ([]models.ClearanceWithUser, *models.Pagination, error)
	Create(ctx context.Context, req dto.CreateClearanceRequest) (*models.Clearance, error)
	Verify(ctx context.Context, membershipID int64, req dto.VerifyClearanceRequest) (*models.Clearance, error)
	Requirements(ctx context.Context) ([]models.RequirementSummary, error)
	CreateRequirement(ctx context.Context, req dto.CreateRequirementRequest) (*dto.RequirementCreated, error)
	UpdateRequirement(ctx context.Context, requirement string, req dto.UpdateRequirementRequest) (*dto.RequirementChanged, error)
	ArchiveRequirement(ctx context.Context, requirement string) (*dto.RequirementChanged, error)
	Export(ctx context.Context, format string, filter models.ClearanceFilter) (*service.ExportFile, error)
}

// MembershipHandler serves clearances, receipts, requirements and QR codes.
type MembershipHandler struct {
	memberships membershipService
}

// NewMembershipHandler constructs the handler.
func NewMembershipHandler(memberships membershipService) *MembershipHandler {
	return &MembershipHandler{memberships: memberships}
}

// QRCode godoc
// @Summary Payment QR code
// @Tags Membership
// @Produce json
// @Param payment_type query string true "gcash or paymaya"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /membership/qrcode [get]
func (h *MembershipHandler) QRCode(c *gin.Context) {
	res, err := h.memberships.QRCode(c.Request.Context(), models.PaymentMethod(c.Query("payment_type")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// UploadQRCode godoc
// @Summary Upload payment QR code
// @Tags Membership
// @Accept multipart/form-data
// @Produce json
// @Param payment_type query string true "gcash or paymaya"
// @Param file formData file true "QR image"
// @Success 200 {object} response.Envelope
// @Router /membership/officer/upload_qrcode [post]
func (h *MembershipHandler) UploadQRCode(c *gin.Context) {
	image, closeImage, err := formImage(c, "file", true)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeImage()

	res, err := h.memberships.UploadQRCode(c.Request.Context(), models.PaymentMethod(c.Query("payment_type")), *image)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// ListForUser godoc
// @Summary Clearances of the caller
// @Tags Membership
// @Produce json
// @Param user_id path int true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /membership/memberships/{user_id} [get]
func (h *MembershipHandler) ListForUser(c *gin.Context) {
	claims, userID, ok := h.selfTarget(c)
	if !ok {
		return
	}
	rows, err := h.memberships.ListForUser(c.Request.Context(), claims.UserID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// ClearanceStatus godoc
// @Summary Compact clearance status list
// @Tags Membership
// @Produce json
// @Param user_id path int true "User ID"
// @Success 200 {object} response.Envelope
// @Router /clearance/{user_id} [get]
func (h *MembershipHandler) ClearanceStatus(c *gin.Context) {
	claims, userID, ok := h.selfTarget(c)
	if !ok {
		return
	}
	rows, err := h.memberships.ClearanceStatus(c.Request.Context(), claims.UserID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

func (h *MembershipHandler) selfTarget(c *gin.Context) (*models.JWTClaims, int64, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, 0, false
	}
	userID, err := pathID(c, "user_id")
	if err != nil {
		response.Error(c, err)
		return nil, 0, false
	}
	return claims, userID, true
}

// UploadReceiptFile godoc
// @Summary Upload a payment receipt image
// @Tags Membership
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Receipt image"
// @Success 200 {object} response.Envelope
// @Router /membership/upload_receipt_file [post]
func (h *MembershipHandler) UploadReceiptFile(c *gin.Context) {
	image, closeImage, err := formImage(c, "file", true)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeImage()

	res, err := h.memberships.UploadReceiptFile(c.Request.Context(), *image)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// UpdateReceipt godoc
// @Summary Submit receipt for a clearance
// @Tags Membership
// @Accept json
// @Produce json
// @Param payload body dto.UpdateReceiptRequest true "Receipt payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /membership/update_receipt [put]
func (h *MembershipHandler) UpdateReceipt(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid receipt payload"))
		return
	}
	clearance, err := h.memberships.UpdateReceipt(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, clearance, nil)
}

// Receipt godoc
// @Summary Receipt attached to a clearance
// @Tags Membership
// @Produce json
// @Param membership_id path int true "Clearance ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /membership/receipt/{membership_id} [get]
func (h *MembershipHandler) Receipt(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, err := pathID(c, "membership_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	res, err := h.memberships.Receipt(c.Request.Context(), claims, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

func clearanceFilterFromQuery(c *gin.Context) (models.ClearanceFilter, error) {
	filter := models.ClearanceFilter{
		Requirement:   strings.TrimSpace(c.Query("requirement")),
		PaymentStatus: models.PaymentStatus(strings.TrimSpace(c.Query("payment_status"))),
	}
	includeArchived, err := optionalBoolQuery(c, "include_archived")
	if err != nil {
		return filter, err
	}
	if includeArchived != nil {
		filter.IncludeArchived = *includeArchived
	}
	if filter.Page, err = intQuery(c, "page"); err != nil {
		return filter, err
	}
	if filter.PageSize, err = intQuery(c, "page_size"); err != nil {
		return filter, err
	}
	return filter, nil
}

// OfficerList godoc
// @Summary Clearances for officers
// @Tags Membership
// @Produce json
// @Param requirement query string false "Requirement"
// @Param payment_status query string false "Not Paid, Verifying or Paid"
// @Param include_archived query bool false "Include archived"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /membership/officer/list [get]
func (h *MembershipHandler) OfficerList(c *gin.Context) {
	filter, err := clearanceFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, pagination, err := h.memberships.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// Create godoc
// @Summary Create a clearance for one member
// @Tags Membership
// @Accept json
// @Produce json
// @Param payload body dto.CreateClearanceRequest true "Clearance payload"
// @Success 201 {object} response.Envelope
// @Router /membership/officer/create [post]
func (h *MembershipHandler) Create(c *gin.Context) {
	var req dto.CreateClearanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid clearance payload"))
		return
	}
	clearance, err := h.memberships.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, clearance)
}

// Verify godoc
// @Summary Approve or deny a receipt
// @Tags Membership
// @Accept json
// @Produce json
// @Param membership_id path int true "Clearance ID"
// @Param payload body dto.VerifyClearanceRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /membership/officer/verify/{membership_id} [put]
func (h *MembershipHandler) Verify(c *gin.Context) {
	id, err := pathID(c, "membership_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.VerifyClearanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid verify payload"))
		return
	}
	clearance, err := h.memberships.Verify(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, clearance, nil)
}

// Requirements godoc
// @Summary Active requirements with counts
// @Tags Membership
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /membership/officer/requirements [get]
func (h *MembershipHandler) Requirements(c *gin.Context) {
	rows, err := h.memberships.Requirements(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// CreateRequirement godoc
// @Summary Issue a requirement to every member
// @Tags Membership
// @Accept json
// @Produce json
// @Param payload body dto.CreateRequirementRequest true "Requirement"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /membership/officer/requirement/create [post]
func (h *MembershipHandler) CreateRequirement(c *gin.Context) {
	var req dto.CreateRequirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid requirement payload"))
		return
	}
	res, err := h.memberships.CreateRequirement(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// UpdateRequirement godoc
// @Summary Change a requirement amount
// @Tags Membership
// @Accept json
// @Produce json
// @Param requirement path string true "Requirement name"
// @Param payload body dto.UpdateRequirementRequest true "Amount"
// @Success 200 {object} response.Envelope
// @Router /membership/officer/requirements/{requirement} [put]
func (h *MembershipHandler) UpdateRequirement(c *gin.Context) {
	var req dto.UpdateRequirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid requirement payload"))
		return
	}
	res, err := h.memberships.UpdateRequirement(c.Request.Context(), c.Param("requirement"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// ArchiveRequirement godoc
// @Summary Archive every clearance of a requirement
// @Tags Membership
// @Produce json
// @Param requirement path string true "Requirement name"
// @Success 200 {object} response.Envelope
// @Router /membership/officer/requirements/{requirement} [delete]
func (h *MembershipHandler) ArchiveRequirement(c *gin.Context) {
	res, err := h.memberships.ArchiveRequirement(c.Request.Context(), c.Param("requirement"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Export godoc
// @Summary Download clearances as CSV or PDF
// @Tags Membership
// @Produce octet-stream
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /membership/officer/export [get]
func (h *MembershipHandler) Export(c *gin.Context) {
	filter, err := clearanceFilterFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.memberships.Export(c.Request.Context(), c.Query("format"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Filename, file.ContentType, file.Data)
}
