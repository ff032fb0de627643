package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/models"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/services"
)

// MockMessageService implements services.MessageService
type MockMessageService struct {
	mock.Mock
}

// ListRecentMessages returns the newest messages
func (m *MockMessageService) ListRecentMessages(ctx context.Context, limit int) ([]models.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

// ListConversation returns one participant's history
func (m *MockMessageService) ListConversation(ctx context.Context, participantID string) ([]models.Message, error) {
	args := m.Called(ctx, participantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

// SendMessage sends a staff message to a participant
func (m *MockMessageService) SendMessage(ctx context.Context, participantID, body string) (*models.Message, error) {
	args := m.Called(ctx, participantID, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

// ReplyMessage replies in the thread of the anchor message
func (m *MockMessageService) ReplyMessage(ctx context.Context, anchorMessageID, body string) (*models.Message, error) {
	args := m.Called(ctx, anchorMessageID, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

// MarkRead marks a message as read
func (m *MockMessageService) MarkRead(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

// ListAllProfiles returns every profile
func (m *MockMessageService) ListAllProfiles(ctx context.Context) ([]models.Profile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Profile), args.Error(1)
}

// ReceiveCustomerMessage stores an inbound customer message
func (m *MockMessageService) ReceiveCustomerMessage(ctx context.Context, in services.InboundMessage) (*models.Message, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

// UnreadSummary counts unread customer messages
func (m *MockMessageService) UnreadSummary(ctx context.Context) ([]models.UnreadCount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UnreadCount), args.Error(1)
}

// UpsertProfile stores a profile
func (m *MockMessageService) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

var _ services.MessageService = (*MockMessageService)(nil)
