package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func limitedServer(t *testing.T, rps float64, burst int) *echo.Echo {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	e := echo.New()
	e.Use(RateLimiter(ctx, rps, burst, nil))
	e.GET("/test", func(c echo.Context) error {
		return c.String(http.StatusOK, "success")
	})
	return e
}

func get(e *echo.Echo, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if ip != "" {
		req.Header.Set("X-Real-IP", ip)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_ExceedsLimit(t *testing.T) {
	e := limitedServer(t, 1, 1)

	assert.Equal(t, http.StatusOK, get(e, "").Code)

	rec := get(e, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestRateLimiter_BurstAllowed(t *testing.T) {
	e := limitedServer(t, 1, 5)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, get(e, "").Code, "Request %d should pass", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, get(e, "").Code)
}

func TestRateLimiter_PerIPIsolation(t *testing.T) {
	e := limitedServer(t, 1, 1)

	assert.Equal(t, http.StatusOK, get(e, "192.168.1.1").Code)
	assert.Equal(t, http.StatusOK, get(e, "192.168.1.2").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(e, "192.168.1.1").Code)
}

func TestIPRateLimiter_GetLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(10, 20)

	l1 := limiter.GetLimiter("192.168.1.1")
	l2 := limiter.GetLimiter("192.168.1.1")
	l3 := limiter.GetLimiter("192.168.1.2")

	assert.Same(t, l1, l2)
	assert.NotSame(t, l1, l3)
}

func TestIPRateLimiter_CleanupRemovesIdleOnly(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	limiter := NewIPRateLimiter(10, 20)
	limiter.now = func() time.Time { return now }

	limiter.GetLimiter("192.168.1.1")
	now = now.Add(20 * time.Minute)
	limiter.GetLimiter("192.168.1.2")
	now = now.Add(15 * time.Minute)

	removed := limiter.CleanupOldEntries(30 * time.Minute)

	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, limiter.Len())
}
