package handlers

import (
	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/realtime"
)

// RealtimeHandler upgrades requests to the websocket change feed
type RealtimeHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewRealtimeHandler creates a new RealtimeHandler
func NewRealtimeHandler(hub *realtime.Hub, upgrader websocket.Upgrader, logger *slog.Logger) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, upgrader: upgrader, logger: logger}
}

// Connect handles GET /api/realtime
func (h *RealtimeHandler) Connect(c echo.Context) error {
	// The upgrader has already written the HTTP error response on failure.
	if err := realtime.Serve(h.hub, h.upgrader, c.Response(), c.Request(), h.logger); err != nil {
		if h.logger != nil {
			h.logger.Debug("websocket upgrade failed",
				slog.String("remote_ip", c.RealIP()),
				slog.Any("error", err),
			)
		}
	}
	return nil
}
