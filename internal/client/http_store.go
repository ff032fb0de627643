// Package client talks to the ShopDesk REST API. HTTPStore lets the inbox
// controllers run against a remote server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/welldanyogia/webrana-shopdesk-backend/internal/errors"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/inbox"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/models"
)

// DefaultTimeout bounds every request made by HTTPStore
const DefaultTimeout = 30 * time.Second

// RealtimePath is the websocket change feed endpoint
const RealtimePath = "/api/realtime"

// HTTPStore implements inbox.Store over the REST API
type HTTPStore struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ inbox.Store = (*HTTPStore)(nil)

// Option configures an HTTPStore
type Option func(*HTTPStore)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(c *http.Client) Option {
	return func(s *HTTPStore) {
		s.httpClient = c
	}
}

// NewHTTPStore creates a store for the server at baseURL
func NewHTTPStore(baseURL, apiKey string, opts ...Option) (*HTTPStore, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}

	s := &HTTPStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RealtimeURL returns the websocket url of the change feed
func (s *HTTPStore) RealtimeURL() string {
	switch {
	case strings.HasPrefix(s.baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(s.baseURL, "https://") + RealtimePath
	default:
		return "ws://" + strings.TrimPrefix(s.baseURL, "http://") + RealtimePath
	}
}

// AuthHeader returns the headers that authenticate against the server
func (s *HTTPStore) AuthHeader() http.Header {
	h := http.Header{}
	if s.apiKey != "" {
		h.Set("Authorization", "Bearer "+s.apiKey)
	}
	return h
}

// ListRecentMessages returns the newest messages across all threads
func (s *HTTPStore) ListRecentMessages(ctx context.Context, limit int) ([]models.Message, error) {
	path := "/api/messages/recent"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var messages []models.Message
	if err := s.do(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, fmt.Errorf("failed to list recent messages: %w", err)
	}
	return messages, nil
}

// ListConversation returns the full history with one participant
func (s *HTTPStore) ListConversation(ctx context.Context, participantID string) ([]models.Message, error) {
	path := "/api/conversations/" + url.PathEscape(participantID) + "/messages"

	var messages []models.Message
	if err := s.do(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, fmt.Errorf("failed to list conversation: %w", err)
	}
	return messages, nil
}

// SendMessage starts or continues a conversation from the support desk
func (s *HTTPStore) SendMessage(ctx context.Context, participantID, body string) (*models.Message, error) {
	path := "/api/conversations/" + url.PathEscape(participantID) + "/messages"

	var msg models.Message
	if err := s.do(ctx, http.MethodPost, path, bodyRequest{Body: body}, &msg); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	return &msg, nil
}

// ReplyMessage answers in the thread that holds the anchor message
func (s *HTTPStore) ReplyMessage(ctx context.Context, anchorMessageID, body string) (*models.Message, error) {
	path := "/api/messages/" + url.PathEscape(anchorMessageID) + "/reply"

	var msg models.Message
	if err := s.do(ctx, http.MethodPost, path, bodyRequest{Body: body}, &msg); err != nil {
		return nil, fmt.Errorf("failed to reply to message: %w", err)
	}
	return &msg, nil
}

// MarkRead marks a message as read
func (s *HTTPStore) MarkRead(ctx context.Context, messageID string) error {
	path := "/api/messages/" + url.PathEscape(messageID) + "/read"

	if err := s.do(ctx, http.MethodPatch, path, nil, nil); err != nil {
		return fmt.Errorf("failed to mark message as read: %w", err)
	}
	return nil
}

// ListAllProfiles returns every known profile
func (s *HTTPStore) ListAllProfiles(ctx context.Context) ([]models.Profile, error) {
	var profiles []models.Profile
	if err := s.do(ctx, http.MethodGet, "/api/profiles", nil, &profiles); err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return profiles, nil
}

type bodyRequest struct {
	Body string `json:"body"`
}

// envelope is the shape of every API response
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

func (s *HTTPStore) do(ctx context.Context, method, path string, in, out interface{}) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = s.AuthHeader()
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if len(data) > 0 {
		if err := json.Unmarshal(data, &env); err != nil && resp.StatusCode < 300 {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	if resp.StatusCode >= 300 {
		return apiError(resp.StatusCode, env)
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to parse response data: %w", err)
		}
	}
	return nil
}

// apiError maps an error response back onto the shared error sentinels so
// callers can use errors.Is across the wire
func apiError(status int, env envelope) error {
	code := env.Code
	if code == "" {
		code = codeForStatus(status)
	}

	message := env.Error
	if message == "" {
		message = fmt.Sprintf("server returned %d", status)
	}

	var sentinel error
	switch code {
	case apperrors.CodeNotFound:
		sentinel = apperrors.ErrNotFound
	case apperrors.CodeDuplicateEntry:
		sentinel = apperrors.ErrDuplicateEntry
	case apperrors.CodeInvalidInput:
		sentinel = apperrors.ErrInvalidInput
	case apperrors.CodeEmptyMessage:
		sentinel = apperrors.ErrEmptyMessage
	case apperrors.CodeMessageTooLong:
		sentinel = apperrors.ErrMessageTooLong
	case apperrors.CodeInvalidTransition:
		sentinel = apperrors.ErrInvalidStatusTransition
	case apperrors.CodeUnauthorized:
		sentinel = apperrors.ErrUnauthorized
	case apperrors.CodeForbidden:
		sentinel = apperrors.ErrForbidden
	default:
		sentinel = apperrors.ErrInternal
	}

	return apperrors.NewAppError(sentinel, message, code)
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return apperrors.CodeNotFound
	case http.StatusBadRequest:
		return apperrors.CodeInvalidInput
	case http.StatusRequestEntityTooLarge:
		return apperrors.CodeMessageTooLong
	case http.StatusUnauthorized:
		return apperrors.CodeUnauthorized
	case http.StatusForbidden:
		return apperrors.CodeForbidden
	default:
		return apperrors.CodeInternalError
	}
}
