package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCapturedSecurityLogger() (*SecurityLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewSecurityLoggerWithHandler(slog.NewJSONHandler(&buf, nil)), &buf
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNewSecurityLogger(t *testing.T) {
	logger := NewSecurityLogger()
	require.NotNil(t, logger)
	assert.NotNil(t, logger.GetLogger())
}

func TestSecurityLogger_Events(t *testing.T) {
	tests := []struct {
		name    string
		log     func(s *SecurityLogger)
		message string
		want    map[string]string
	}{
		{
			name:    "auth failure",
			log:     func(s *SecurityLogger) { s.AuthFailure("203.0.113.7", "/api/messages/recent", "invalid_api_key") },
			message: "authentication_failure",
			want: map[string]string{
				"event_type": "auth_failure",
				"ip":         "203.0.113.7",
				"path":       "/api/messages/recent",
				"reason":     "invalid_api_key",
			},
		},
		{
			name:    "rate limit",
			log:     func(s *SecurityLogger) { s.RateLimitExceeded("203.0.113.7", "/api/inbound/messages") },
			message: "rate_limit_exceeded",
			want: map[string]string{
				"event_type": "rate_limit",
				"path":       "/api/inbound/messages",
			},
		},
		{
			name:    "suspicious activity",
			log:     func(s *SecurityLogger) { s.SuspiciousActivity("203.0.113.7", "/api/realtime", "topic_probe") },
			message: "suspicious_activity",
			want: map[string]string{
				"event_type": "suspicious",
				"activity":   "topic_probe",
			},
		},
		{
			name:    "invalid origin",
			log:     func(s *SecurityLogger) { s.InvalidOrigin("203.0.113.7", "https://evil.example") },
			message: "invalid_origin",
			want: map[string]string{
				"event_type": "invalid_origin",
				"origin":     "https://evil.example",
			},
		},
		{
			name:    "impersonation",
			log:     func(s *SecurityLogger) { s.ImpersonationAttempt("203.0.113.7", "support") },
			message: "impersonation_attempt",
			want: map[string]string{
				"event_type": "impersonation",
				"claimed_id": "support",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newCapturedSecurityLogger()
			tt.log(logger)

			entry := decodeEntry(t, buf)
			assert.Equal(t, "WARN", entry["level"])
			assert.Equal(t, tt.message, entry["msg"])
			for k, v := range tt.want {
				assert.Equal(t, v, entry[k], k)
			}

			ts, ok := entry["timestamp"].(string)
			require.True(t, ok)
			_, err := time.Parse(time.RFC3339Nano, ts)
			assert.NoError(t, err)
		})
	}
}

func TestNewSecurityLoggerFrom_TagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSecurityLoggerFrom(NewWithWriter(&buf, "info"))

	logger.RateLimitExceeded("10.0.0.1", "/api/messages/recent")

	assert.Contains(t, buf.String(), `"component":"security"`)
}

func TestSecurityLogger_SecurityEventDropsSensitiveKeys(t *testing.T) {
	logger, buf := newCapturedSecurityLogger()

	logger.SecurityEvent("profile_sync", "198.51.100.4", map[string]string{
		"participant_id": "cust-42",
		"api_key":        "sk-live-123",
		"token":          "ws-token",
		"cookie":         "sid=abc",
	})

	out := buf.String()
	assert.Contains(t, out, "cust-42")
	assert.Contains(t, out, "profile_sync")
	assert.NotContains(t, out, "sk-live-123")
	assert.NotContains(t, out, "ws-token")
	assert.NotContains(t, out, "sid=abc")
}

func TestIsSensitiveKey(t *testing.T) {
	for _, key := range []string{"password", "api_key", "apikey", "token", "secret", "authorization", "auth", "credential", "credentials", "session", "cookie"} {
		assert.True(t, isSensitiveKey(key), key)
	}
	for _, key := range []string{"participant_id", "message_id", "path", "ip", "email"} {
		assert.False(t, isSensitiveKey(key), key)
	}
}

func TestSecurityLogger_InfoAndError(t *testing.T) {
	logger, buf := newCapturedSecurityLogger()

	logger.Info("api key rotated", slog.String("source", "env"))
	logger.Error("origin list empty", slog.String("env", "production"))

	out := buf.String()
	assert.Contains(t, out, "api key rotated")
	assert.Contains(t, out, `"level":"ERROR"`)
	assert.Contains(t, out, "origin list empty")
}
