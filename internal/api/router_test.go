package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/database"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/metrics"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/models"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/realtime"
	"github.com/welldanyogia/webrana-shopdesk-backend/tests/mocks"
)

const testAPIKey = "test-api-key"

type routerFixture struct {
	server  *httptest.Server
	service *mocks.MockMessageService
	hub     *realtime.Hub
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	db, err := database.Connect("sqlite::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	hub := realtime.NewHub(nil, m)
	go hub.Run(ctx)

	svc := new(mocks.MockMessageService)
	e := NewRouter(&RouterConfig{
		Ctx:      ctx,
		DB:       db,
		Service:  svc,
		Hub:      hub,
		Upgrader: realtime.NewSecureUpgrader(nil, nil),
		Metrics:  m,
		Gatherer: reg,
		APIKey:   testAPIKey,
	})

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return &routerFixture{server: srv, service: svc, hub: hub}
}

func (f *routerFixture) do(t *testing.T, method, path, body string, authorized bool) (*http.Response, string) {
	t.Helper()

	req, err := http.NewRequest(method, f.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if authorized {
		req.Header.Set("Authorization", "Bearer "+testAPIKey)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func TestRouter_HealthWithoutAuth(t *testing.T) {
	f := newRouterFixture(t)

	resp, body := f.do(t, http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"database":"healthy"`)
	assert.Contains(t, body, `"realtime_clients":0`)

	resp, _ = f.do(t, http.MethodGet, "/ready", "", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_SecurityHeaders(t *testing.T) {
	f := newRouterFixture(t)

	resp, _ := f.do(t, http.MethodGet, "/health", "", false)
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestRouter_APIRequiresKey(t *testing.T) {
	f := newRouterFixture(t)

	resp, _ := f.do(t, http.MethodGet, "/api/messages/recent", "", false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	f.service.AssertNotCalled(t, "ListRecentMessages", mock.Anything, mock.Anything)
}

func TestRouter_Routes(t *testing.T) {
	f := newRouterFixture(t)
	reply := &models.Message{ID: "r1", SenderID: "support", ReceiverID: "cust-1", IsAdminReply: true, Body: "hi"}

	f.service.On("ListRecentMessages", mock.Anything, 20).Return([]models.Message{}, nil)
	f.service.On("UnreadSummary", mock.Anything).Return([]models.UnreadCount{}, nil)
	f.service.On("MarkRead", mock.Anything, "m1").Return(nil)
	f.service.On("ReplyMessage", mock.Anything, "m1", "hi").Return(reply, nil)
	f.service.On("ListConversation", mock.Anything, "cust-1").Return([]models.Message{}, nil)
	f.service.On("SendMessage", mock.Anything, "cust-1", "hi").Return(reply, nil)
	f.service.On("ListAllProfiles", mock.Anything).Return([]models.Profile{}, nil)

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodGet, "/api/messages/recent?limit=20", "", http.StatusOK},
		{http.MethodGet, "/api/messages/unread", "", http.StatusOK},
		{http.MethodPatch, "/api/messages/m1/read", "", http.StatusOK},
		{http.MethodPost, "/api/messages/m1/reply", `{"body":"hi"}`, http.StatusCreated},
		{http.MethodGet, "/api/conversations/cust-1/messages", "", http.StatusOK},
		{http.MethodPost, "/api/conversations/cust-1/messages", `{"body":"hi"}`, http.StatusCreated},
		{http.MethodGet, "/api/profiles", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp, _ := f.do(t, tt.method, tt.path, tt.body, true)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	f.service.AssertExpectations(t)
}

func TestRouter_UnknownRoute(t *testing.T) {
	f := newRouterFixture(t)

	resp, _ := f.do(t, http.MethodGet, "/api/mailboxes", "", true)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	f := newRouterFixture(t)

	f.do(t, http.MethodGet, "/health", "", false)

	resp, body := f.do(t, http.MethodGet, "/metrics", "", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "shopdesk_http_requests_total")
	assert.Contains(t, body, `path="/health"`)
}

func TestRouter_RealtimeWithAccessToken(t *testing.T) {
	f := newRouterFixture(t)
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/api/realtime"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(url+"?access_token="+testAPIKey, nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
}
