package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// healthCheckTimeout bounds each dependency probe
const healthCheckTimeout = 2 * time.Second

// Check probes one dependency
type Check func(ctx context.Context) error

// HealthHandler handles health check HTTP requests
type HealthHandler struct {
	db     *gorm.DB
	checks map[string]Check
	// clients reports connected realtime clients; optional
	clients func() int
}

// NewHealthHandler creates a new HealthHandler. checks are optional extra
// dependencies reported next to the database, such as redis.
func NewHealthHandler(db *gorm.DB, checks map[string]Check, clients func() int) *HealthHandler {
	return &HealthHandler{db: db, checks: checks, clients: clients}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status          string            `json:"status"`
	Services        map[string]string `json:"services"`
	RealtimeClients *int              `json:"realtime_clients,omitempty"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c echo.Context) error {
	ctx := c.Request().Context()
	services := make(map[string]string)
	status := "healthy"

	if err := h.pingDB(ctx); err != nil {
		services["database"] = "unhealthy"
		status = "unhealthy"
	} else {
		services["database"] = "healthy"
	}

	for name, check := range h.checks {
		checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		err := check(checkCtx)
		cancel()
		if err != nil {
			services[name] = "unhealthy"
			status = "unhealthy"
		} else {
			services[name] = "healthy"
		}
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	resp := HealthResponse{
		Status:   status,
		Services: services,
	}
	if h.clients != nil {
		n := h.clients()
		resp.RealtimeClients = &n
	}
	return c.JSON(statusCode, resp)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c echo.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database connection failed",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database ping failed",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
	})
}

func (h *HealthHandler) pingDB(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
