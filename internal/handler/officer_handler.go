package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/specs-nexus-api/internal/dto"
	"github.com/noah-isme/specs-nexus-api/internal/models"
	appErrors "github.com/noah-isme/specs-nexus-api/pkg/errors"
	"github.com/noah-isme/specs-nexus-api/pkg/response"
)

type officerLogin interface {
	OfficerLogin(ctx context.Context, req models.OfficerLoginRequest) (*models.LoginResponse, error)
}

type officerService interface {
	List(ctx context.Context) ([]models.Officer, error)
	ListUsers(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error)
	Create(ctx context.Context, req dto.CreateOfficerRequest) (*models.Officer, error)
	BulkCreate(ctx context.Context, req dto.BulkCreateOfficerRequest) (*dto.BulkCreateOfficerResponse, error)
	Update(ctx context.Context, id int64, req dto.UpdateOfficerRequest) (*models.Officer, error)
	Delete(ctx context.Context, id int64) error
}

// OfficerHandler serves officer login and roster management.
type OfficerHandler struct {
	auth     officerLogin
	officers officerService
}

// NewOfficerHandler constructs the handler.
func NewOfficerHandler(auth officerLogin, officers officerService) *OfficerHandler {
	return &OfficerHandler{auth: auth, officers: officers}
}

// Login godoc
// @Summary Authenticate officer
// @Tags Officers
// @Accept json
// @Produce json
// @Param payload body models.OfficerLoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /officers/login [post]
func (h *OfficerHandler) Login(c *gin.Context) {
	var req models.OfficerLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.auth.OfficerLogin(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// List godoc
// @Summary Officer roster
// @Tags Officers
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /officers [get]
func (h *OfficerHandler) List(c *gin.Context) {
	officers, err := h.officers.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, officers, nil)
}

// ListUsers godoc
// @Summary Paginated member directory
// @Tags Officers
// @Produce json
// @Param search query string false "Name, email or student number"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /officers/users [get]
func (h *OfficerHandler) ListUsers(c *gin.Context) {
	page, err := intQuery(c, "page")
	if err != nil {
		response.Error(c, err)
		return
	}
	pageSize, err := intQuery(c, "page_size")
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.UserFilter{Search: strings.TrimSpace(c.Query("search")), Page: page, PageSize: pageSize}

	users, pagination, err := h.officers.ListUsers(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, users, pagination)
}

// Create godoc
// @Summary Promote a member to officer
// @Tags Officers
// @Accept json
// @Produce json
// @Param payload body dto.CreateOfficerRequest true "Officer payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /officers [post]
func (h *OfficerHandler) Create(c *gin.Context) {
	var req dto.CreateOfficerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid officer payload"))
		return
	}
	officer, err := h.officers.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, officer)
}

// BulkCreate godoc
// @Summary Promote several members to the same position
// @Tags Officers
// @Accept json
// @Produce json
// @Param payload body dto.BulkCreateOfficerRequest true "Bulk payload"
// @Success 201 {object} response.Envelope
// @Router /officers/bulk [post]
func (h *OfficerHandler) BulkCreate(c *gin.Context) {
	var req dto.BulkCreateOfficerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid officer payload"))
		return
	}
	res, err := h.officers.BulkCreate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Update godoc
// @Summary Update officer
// @Tags Officers
// @Accept json
// @Produce json
// @Param id path int true "Officer ID"
// @Param payload body dto.UpdateOfficerRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /officers/{id} [put]
func (h *OfficerHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateOfficerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid officer payload"))
		return
	}
	officer, err := h.officers.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, officer, nil)
}

// Delete godoc
// @Summary Remove officer
// @Tags Officers
// @Param id path int true "Officer ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /officers/{id} [delete]
func (h *OfficerHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.officers.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
