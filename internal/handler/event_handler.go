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

type eventService interface {
	ListForUser(ctx context.Context, userID int64) ([]models.EventView, error)
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
	Create(ctx context.Context, form dto.EventForm, image *service.ImageUpload) (*models.Event, error)
	Update(ctx context.Context, id int64, form dto.EventForm, image *service.ImageUpload) (*models.Event, error)
	Archive(ctx context.Context, id int64) error
	Join(ctx context.Context, eventID, userID int64) (*dto.ParticipationResponse, error)
	Leave(ctx context.Context, eventID, userID int64) (*dto.ParticipationResponse, error)
	Participants(ctx context.Context, eventID int64) ([]models.EventParticipant, error)
}

// EventHandler serves event listings, participation and officer management.
type EventHandler struct {
	events eventService
}

// NewEventHandler constructs the handler.
func NewEventHandler(events eventService) *EventHandler {
	return &EventHandler{events: events}
}

// List godoc
// @Summary Events visible to the member
// @Description Includes participant count, whether the caller joined and the registration status
// @Tags Events
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /events [get]
func (h *EventHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	events, err := h.events.ListForUser(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// Join godoc
// @Summary Join an event
// @Tags Events
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /events/join/{id} [post]
func (h *EventHandler) Join(c *gin.Context) {
	h.participate(c, h.events.Join)
}

// Leave godoc
// @Summary Leave an event
// @Tags Events
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /events/leave/{id} [post]
func (h *EventHandler) Leave(c *gin.Context) {
	h.participate(c, h.events.Leave)
}

func (h *EventHandler) participate(c *gin.Context, action func(ctx context.Context, eventID, userID int64) (*dto.ParticipationResponse, error)) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	res, err := action(c.Request.Context(), id, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// OfficerList godoc
// @Summary Events for officers
// @Tags Events
// @Produce json
// @Param archived query bool false "Archived flag"
// @Success 200 {object} response.Envelope
// @Router /events/officer/list [get]
func (h *EventHandler) OfficerList(c *gin.Context) {
	archived, err := optionalBoolQuery(c, "archived")
	if err != nil {
		response.Error(c, err)
		return
	}
	events, err := h.events.List(c.Request.Context(), models.EventFilter{Archived: archived})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// Create godoc
// @Summary Create event
// @Tags Events
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Title"
// @Param description formData string false "Description"
// @Param date formData string false "Date"
// @Param location formData string false "Location"
// @Param registration_start formData string false "Registration start"
// @Param registration_end formData string false "Registration end"
// @Param image formData file false "Image"
// @Success 201 {object} response.Envelope
// @Router /events/officer/create [post]
func (h *EventHandler) Create(c *gin.Context) {
	var form dto.EventForm
	if err := c.ShouldBind(&form); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid event form"))
		return
	}
	image, closeImage, err := formImage(c, "image", false)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeImage()

	event, err := h.events.Create(c.Request.Context(), form, image)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// Update godoc
// @Summary Update event
// @Tags Events
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/officer/update/{id} [put]
func (h *EventHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var form dto.EventForm
	if err := c.ShouldBind(&form); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid event form"))
		return
	}
	image, closeImage, err := formImage(c, "image", false)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeImage()

	event, err := h.events.Update(c.Request.Context(), id, form, image)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// Delete godoc
// @Summary Archive event
// @Tags Events
// @Param id path int true "Event ID"
// @Success 204
// @Router /events/officer/delete/{id} [delete]
func (h *EventHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.events.Archive(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Participants godoc
// @Summary Members who joined an event
// @Tags Events
// @Produce json
// @Param id path int true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id}/participants [get]
func (h *EventHandler) Participants(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	participants, err := h.events.Participants(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, participants, nil)
}
