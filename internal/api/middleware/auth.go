// Package middleware provides HTTP middleware for the ShopDesk API.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/welldanyogia/webrana-shopdesk-backend/internal/logger"
)

// AccessTokenParam carries the API key for websocket clients that cannot set headers
const AccessTokenParam = "access_token"

// APIKeyAuth validates the API key from the Authorization header.
// Uses constant-time comparison to prevent timing attacks. An empty apiKey
// disables authentication.
func APIKeyAuth(apiKey string, secLogger *logger.SecurityLogger) echo.MiddlewareFunc {
	if apiKey == "" && secLogger != nil {
		secLogger.GetLogger().Warn("API_KEY not set - API is UNSECURED")
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Path()

			// Skip auth for health endpoints
			if strings.HasPrefix(path, "/health") || strings.HasPrefix(path, "/ready") {
				return next(c)
			}

			if apiKey == "" {
				return next(c)
			}

			token := bearerToken(c.Request())
			if token == "" && websocketUpgrade(c.Request()) {
				token = c.QueryParam(AccessTokenParam)
			}

			if token == "" {
				if secLogger != nil {
					secLogger.AuthFailure(c.RealIP(), path, "missing_credentials")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, map[string]string{
					"error": "missing authorization header",
					"code":  "UNAUTHORIZED",
				})
			}

			if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
				if secLogger != nil {
					secLogger.AuthFailure(c.RealIP(), path, "invalid_api_key")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, map[string]string{
					"error": "invalid API key",
					"code":  "UNAUTHORIZED",
				})
			}

			return next(c)
		}
	}
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get(echo.HeaderAuthorization)
	return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
}

func websocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get(echo.HeaderUpgrade), "websocket")
}
