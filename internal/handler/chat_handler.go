package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/specs-nexus-api/internal/dto"
	appErrors "github.com/noah-isme/specs-nexus-api/pkg/errors"
	"github.com/noah-isme/specs-nexus-api/pkg/response"
)

type chatService interface {
	Reply(ctx context.Context, callerID int64, req dto.ChatRequest) (*dto.ChatResponse, error)
}

// ChatHandler serves the assistant.
type ChatHandler struct {
	chat chatService
}

// NewChatHandler constructs the handler.
func NewChatHandler(chat chatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// Chat godoc
// @Summary Ask the assistant
// @Tags Chat
// @Accept json
// @Produce json
// @Param payload body dto.ChatRequest true "Question"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /chat [post]
func (h *ChatHandler) Chat(c *gin.Context) {
	if h.chat == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUpstream, "chat assistant is disabled"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid chat payload"))
		return
	}
	res, err := h.chat.Reply(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
