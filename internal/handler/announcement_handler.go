package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/specs-nexus-api/internal/dto"
	"github.com/noah-isme/specs-nexus-api/internal/models"
	"github.com/noah-isme/specs-nexus-api/internal/service"
	appErrors "github.com/noah-isme/specs-nexus-api/pkg/errors"
	"github.com/noah-isme/specs-nexus-api/pkg/response"
)

type announcementService interface {
	List(ctx context.Context, filter models.AnnouncementFilter) ([]models.Announcement, error)
	Create(ctx context.Context, form dto.AnnouncementForm, image *service.ImageUpload) (*models.Announcement, error)
	Update(ctx context.Context, id int64, form dto.AnnouncementForm, image *service.ImageUpload) (*models.Announcement, error)
	Archive(ctx context.Context, id int64) error
}

// AnnouncementHandler serves announcements.
type AnnouncementHandler struct {
	announcements announcementService
}

// NewAnnouncementHandler constructs the handler.
func NewAnnouncementHandler(announcements announcementService) *AnnouncementHandler {
	return &AnnouncementHandler{announcements: announcements}
}

// List godoc
// @Summary Active announcements
// @Tags Announcements
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /announcements [get]
func (h *AnnouncementHandler) List(c *gin.Context) {
	archived := false
	h.list(c, models.AnnouncementFilter{Archived: &archived})
}

// OfficerList godoc
// @Summary Announcements for officers
// @Tags Announcements
// @Produce json
// @Param archived query bool false "Archived flag"
// @Success 200 {object} response.Envelope
// @Router /announcements/officer/list [get]
func (h *AnnouncementHandler) OfficerList(c *gin.Context) {
	archived, err := optionalBoolQuery(c, "archived")
	if err != nil {
		response.Error(c, err)
		return
	}
	h.list(c, models.AnnouncementFilter{Archived: archived})
}

func (h *AnnouncementHandler) list(c *gin.Context, filter models.AnnouncementFilter) {
	items, err := h.announcements.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Create godoc
// @Summary Create announcement
// @Tags Announcements
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param image formData file false "Image"
// @Success 201 {object} response.Envelope
// @Router /announcements/officer/create [post]
func (h *AnnouncementHandler) Create(c *gin.Context) {
	var form dto.AnnouncementForm
	if err := c.ShouldBind(&form); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid announcement form"))
		return
	}
	image, closeImage, err := formImage(c, "image", false)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeImage()

	item, err := h.announcements.Create(c.Request.Context(), form, image)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update announcement
// @Tags Announcements
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Announcement ID"
// @Success 200 {object} response.Envelope
// @Router /announcements/officer/update/{id} [put]
func (h *AnnouncementHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var form dto.AnnouncementForm
	if err := c.ShouldBind(&form); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid announcement form"))
		return
	}
	image, closeImage, err := formImage(c, "image", false)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeImage()

	item, err := h.announcements.Update(c.Request.Context(), id, form, image)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Delete godoc
// @Summary Archive announcement
// @Tags Announcements
// @Param id path int true "Announcement ID"
// @Success 204
// @Router /announcements/officer/delete/{id} [delete]
func (h *AnnouncementHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.announcements.Archive(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
