package handlers

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/api/response"
	apperrors "github.com/welldanyogia/webrana-shopdesk-backend/internal/errors"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/logger"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/services"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/validator"
)

// MessageHandler handles message-related HTTP requests
type MessageHandler struct {
	service   services.MessageService
	logger    *slog.Logger
	secLogger *logger.SecurityLogger
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(service services.MessageService, logger *slog.Logger, secLogger *logger.SecurityLogger) *MessageHandler {
	return &MessageHandler{
		service:   service,
		logger:    logger,
		secLogger: secLogger,
	}
}

// MessageBodyRequest is the payload of send and reply
type MessageBodyRequest struct {
	Body string `json:"body"`
}

// InboundMessageRequest is a customer message forwarded by the storefront
type InboundMessageRequest struct {
	SenderID          string `json:"sender_id" validate:"required,participant_id"`
	AuthorDisplayName string `json:"author_display_name" validate:"max=255"`
	Body              string `json:"body"`
}

// ListRecent handles GET /api/messages/recent
func (h *MessageHandler) ListRecent(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return response.BadRequest(c, "invalid limit")
		}
		limit = parsed
	}
	limit, _ = validator.ValidatePagination(limit, 0)

	messages, err := h.service.ListRecentMessages(c.Request().Context(), limit)
	if err != nil {
		h.logError("failed to list recent messages", err)
		return response.Error(c, err)
	}

	return response.List(c, messages, len(messages), limit)
}

// UnreadSummary handles GET /api/messages/unread
func (h *MessageHandler) UnreadSummary(c echo.Context) error {
	counts, err := h.service.UnreadSummary(c.Request().Context())
	if err != nil {
		h.logError("failed to count unread messages", err)
		return response.Error(c, err)
	}

	return response.List(c, counts, len(counts), 0)
}

// MarkRead handles PATCH /api/messages/:id/read
func (h *MessageHandler) MarkRead(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return response.BadRequest(c, "message id is required")
	}

	if err := h.service.MarkRead(c.Request().Context(), id); err != nil {
		if !apperrors.IsNotFound(err) {
			h.logError("failed to mark message as read", err)
		}
		return response.Error(c, err)
	}

	return response.SuccessWithMessage(c, nil, "message marked as read")
}

// Reply handles POST /api/messages/:id/reply
func (h *MessageHandler) Reply(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return response.BadRequest(c, "message id is required")
	}

	var req MessageBodyRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	msg, err := h.service.ReplyMessage(c.Request().Context(), id, req.Body)
	if err != nil {
		if !apperrors.IsNotFound(err) && !apperrors.IsInvalidInput(err) {
			h.logError("failed to reply to message", err)
		}
		return response.Error(c, err)
	}

	return response.Created(c, msg)
}

// ListConversation handles GET /api/conversations/:participant_id/messages
func (h *MessageHandler) ListConversation(c echo.Context) error {
	participantID := c.Param("participant_id")

	messages, err := h.service.ListConversation(c.Request().Context(), participantID)
	if err != nil {
		if !apperrors.IsInvalidInput(err) {
			h.logError("failed to list conversation", err)
		}
		return response.Error(c, err)
	}

	return response.List(c, messages, len(messages), 0)
}

// Send handles POST /api/conversations/:participant_id/messages
func (h *MessageHandler) Send(c echo.Context) error {
	participantID := c.Param("participant_id")

	var req MessageBodyRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	msg, err := h.service.SendMessage(c.Request().Context(), participantID, req.Body)
	if err != nil {
		if !apperrors.IsNotFound(err) && !apperrors.IsInvalidInput(err) {
			h.logError("failed to send message", err)
		}
		return response.Error(c, err)
	}

	return response.Created(c, msg)
}

// Inbound handles POST /api/inbound/messages
func (h *MessageHandler) Inbound(c echo.Context) error {
	var req InboundMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	msg, err := h.service.ReceiveCustomerMessage(c.Request().Context(), services.InboundMessage{
		SenderID:          req.SenderID,
		AuthorDisplayName: req.AuthorDisplayName,
		Body:              req.Body,
	})
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrForbidden):
			if h.secLogger != nil {
				h.secLogger.ImpersonationAttempt(c.RealIP(), req.SenderID)
			}
		case !apperrors.IsInvalidInput(err):
			h.logError("failed to receive customer message", err)
		}
		return response.Error(c, err)
	}

	return response.Created(c, msg)
}

func (h *MessageHandler) logError(msg string, err error) {
	if h.logger != nil {
		h.logger.Error(msg, slog.Any("error", err))
	}
}
