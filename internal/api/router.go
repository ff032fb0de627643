package api

import (
	"context"
	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/api/handlers"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/api/middleware"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/logger"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/metrics"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/realtime"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/services"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/validator"
	"gorm.io/gorm"
)

// RouterConfig holds dependencies for the router
type RouterConfig struct {
	// Ctx bounds background work started by middleware
	Ctx context.Context

	DB       *gorm.DB
	Service  services.MessageService
	Hub      *realtime.Hub
	Upgrader websocket.Upgrader
	// HealthChecks are reported by /health next to the database
	HealthChecks map[string]handlers.Check

	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer

	Logger         *slog.Logger
	SecurityLogger *logger.SecurityLogger

	// Security configuration
	APIKey         string   // API key for authentication (empty = disabled)
	AllowedOrigins []string // Allowed CORS origins
	AppEnv         string
	RateLimit      float64 // Requests per second (0 = no limit)
	RateBurst      int     // Burst size for rate limiter
}

// NewRouter creates and configures the Echo router with all routes
func NewRouter(cfg *RouterConfig) *echo.Echo {
	ctx := cfg.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validator.New()

	// 1. Recover from panics
	e.Use(middleware.Recover())

	// 2. Security headers (applied to all responses)
	e.Use(middleware.SecureHeaders())

	// 3. CORS
	e.Use(middleware.SecureCORS(cfg.AllowedOrigins, cfg.AppEnv))

	// 4. Rate limiting
	if cfg.RateLimit > 0 {
		e.Use(middleware.RateLimiter(ctx, cfg.RateLimit, cfg.RateBurst, cfg.SecurityLogger))
	}

	// 5. Request logging and metrics
	if cfg.Logger != nil {
		e.Use(middleware.RequestLogger(cfg.Logger))
	}
	e.Use(middleware.RequestMetrics(cfg.Metrics))

	// Initialize handlers
	var clients func() int
	if cfg.Hub != nil {
		clients = cfg.Hub.ClientCount
	}
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.HealthChecks, clients)
	messageHandler := handlers.NewMessageHandler(cfg.Service, cfg.Logger, cfg.SecurityLogger)
	profileHandler := handlers.NewProfileHandler(cfg.Service, cfg.Logger)

	// Health routes (no auth required)
	e.GET("/health", healthHandler.Health)
	e.GET("/ready", healthHandler.Ready)

	if cfg.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	// API routes
	api := e.Group("/api")
	api.Use(middleware.APIKeyAuth(cfg.APIKey, cfg.SecurityLogger))

	// Message routes
	messages := api.Group("/messages")
	messages.GET("/recent", messageHandler.ListRecent)
	messages.GET("/unread", messageHandler.UnreadSummary)
	messages.PATCH("/:id/read", messageHandler.MarkRead)
	messages.POST("/:id/reply", messageHandler.Reply)

	// Conversation routes
	conversations := api.Group("/conversations")
	conversations.GET("/:participant_id/messages", messageHandler.ListConversation)
	conversations.POST("/:participant_id/messages", messageHandler.Send)

	// Storefront routes
	api.POST("/inbound/messages", messageHandler.Inbound)
	api.GET("/profiles", profileHandler.List)
	api.POST("/profiles", profileHandler.Upsert)

	// Realtime change feed
	if cfg.Hub != nil {
		realtimeHandler := handlers.NewRealtimeHandler(cfg.Hub, cfg.Upgrader, cfg.Logger)
		api.GET("/realtime", realtimeHandler.Connect)
	}

	return e
}
