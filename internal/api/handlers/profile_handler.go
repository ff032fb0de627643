package handlers

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/api/response"
	apperrors "github.com/welldanyogia/webrana-shopdesk-backend/internal/errors"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/models"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/services"
)

// ProfileHandler handles profile-related HTTP requests
type ProfileHandler struct {
	service services.MessageService
	logger  *slog.Logger
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(service services.MessageService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{service: service, logger: logger}
}

// UpsertProfileRequest is a profile synced from the storefront
type UpsertProfileRequest struct {
	ID       string `json:"id" validate:"required,participant_id"`
	FullName string `json:"full_name" validate:"max=255"`
	Email    string `json:"email" validate:"omitempty,email,max=255"`
	Role     string `json:"role" validate:"omitempty,oneof=customer admin"`
}

// List handles GET /api/profiles
func (h *ProfileHandler) List(c echo.Context) error {
	profiles, err := h.service.ListAllProfiles(c.Request().Context())
	if err != nil {
		if h.logger != nil {
			h.logger.Error("failed to list profiles", slog.Any("error", err))
		}
		return response.Error(c, err)
	}

	return response.List(c, profiles, len(profiles), 0)
}

// Upsert handles POST /api/profiles
func (h *ProfileHandler) Upsert(c echo.Context) error {
	var req UpsertProfileRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	profile := &models.Profile{
		ID:       req.ID,
		FullName: req.FullName,
		Email:    req.Email,
		Role:     models.ProfileRole(req.Role),
	}
	if err := h.service.UpsertProfile(c.Request().Context(), profile); err != nil {
		if !apperrors.IsInvalidInput(err) && h.logger != nil {
			h.logger.Error("failed to upsert profile", slog.Any("error", err))
		}
		return response.Error(c, err)
	}

	return response.Success(c, profile)
}
