package realtime

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/welldanyogia/webrana-shopdesk-backend/internal/logger"
)

// DefaultAllowedOrigin is used when no origins are configured
const DefaultAllowedOrigin = "http://localhost:3000"

// NewSecureUpgrader creates a websocket upgrader that only accepts the given origins.
// Same-origin requests without an Origin header are always accepted.
func NewSecureUpgrader(allowedOrigins []string, secLogger *logger.SecurityLogger) websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowed[origin] = true
		}
	}
	if len(allowed) == 0 {
		allowed[DefaultAllowedOrigin] = true
	}

	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowed[origin] {
				return true
			}

			if secLogger != nil {
				secLogger.InvalidOrigin(r.RemoteAddr, origin)
			}
			return false
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}
