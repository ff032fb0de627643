package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	apperrors "github.com/welldanyogia/webrana-shopdesk-backend/internal/errors"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/models"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/realtime"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/repository"
)

// MockMessageRepository is a mock implementation of MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Create(ctx context.Context, message *models.Message) error {
	args := m.Called(ctx, message)
	if args.Error(0) == nil && message.ID == "" {
		message.ID = "generated-id"
	}
	return args.Error(0)
}

func (m *MockMessageRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockMessageRepository) ListRecent(ctx context.Context, limit int) ([]models.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockMessageRepository) ListConversation(ctx context.Context, participantID string) ([]models.Message, error) {
	args := m.Called(ctx, participantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockMessageRepository) MarkAsRead(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockMessageRepository) UnreadSummary(ctx context.Context) ([]models.UnreadCount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UnreadCount), args.Error(1)
}

// MockProfileRepository is a mock implementation of ProfileRepository
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) Upsert(ctx context.Context, profile *models.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockProfileRepository) List(ctx context.Context) ([]models.Profile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Profile), args.Error(1)
}

// MockPublisher is a mock implementation of realtime.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, ev realtime.Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

var testConfig = MessageServiceConfig{
	SupportID:        "support",
	SupportName:      "Customer Support",
	MaxMessageLength: 20,
}

func newTestService() (MessageService, *MockMessageRepository, *MockProfileRepository, *MockPublisher) {
	messages := new(MockMessageRepository)
	profiles := new(MockProfileRepository)
	publisher := new(MockPublisher)
	return NewMessageService(messages, profiles, publisher, testConfig, nil), messages, profiles, publisher
}

func isInsert(participantID string) interface{} {
	return mock.MatchedBy(func(ev realtime.Event) bool {
		return ev.Type == realtime.EventInsert && ev.Record.ParticipantID() == participantID
	})
}

// ==================== ListRecentMessages Tests ====================

func TestListRecentMessages_ClampsLimit(t *testing.T) {
	service, messages, _, _ := newTestService()
	messages.On("ListRecent", mock.Anything, 100).Return([]models.Message{{ID: "m1"}}, nil).Once()
	messages.On("ListRecent", mock.Anything, 500).Return([]models.Message{}, nil).Once()

	result, err := service.ListRecentMessages(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, result, 1)

	_, err = service.ListRecentMessages(context.Background(), 10_000)
	require.NoError(t, err)
	messages.AssertExpectations(t)
}

func TestListRecentMessages_RepositoryError(t *testing.T) {
	service, messages, _, _ := newTestService()
	messages.On("ListRecent", mock.Anything, 50).Return(nil, errors.New("db down"))

	_, err := service.ListRecentMessages(context.Background(), 50)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list recent messages")
}

// ==================== ListConversation Tests ====================

func TestListConversation_InvalidParticipant(t *testing.T) {
	service, messages, _, _ := newTestService()

	_, err := service.ListConversation(context.Background(), "bad id")

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	messages.AssertNotCalled(t, "ListConversation", mock.Anything, mock.Anything)
}

func TestListConversation_Success(t *testing.T) {
	service, messages, _, _ := newTestService()
	messages.On("ListConversation", mock.Anything, "u1").Return([]models.Message{{ID: "m1"}, {ID: "m2"}}, nil)

	result, err := service.ListConversation(context.Background(), "u1")

	require.NoError(t, err)
	assert.Len(t, result, 2)
}

// ==================== SendMessage Tests ====================

func TestSendMessage_Success(t *testing.T) {
	service, messages, profiles, publisher := newTestService()
	profiles.On("GetByID", mock.Anything, "u2").Return(&models.Profile{ID: "u2"}, nil)
	messages.On("Create", mock.Anything, mock.MatchedBy(func(m *models.Message) bool {
		return m.SenderID == "support" &&
			m.ReceiverID == "u2" &&
			m.IsAdminReply &&
			m.Status == models.StatusUnread &&
			m.AuthorDisplayName == "Customer Support" &&
			m.Body == "Hi there"
	})).Return(nil)
	publisher.On("Publish", mock.Anything, isInsert("u2")).Return(nil)

	msg, err := service.SendMessage(context.Background(), "u2", "  Hi there  ")

	require.NoError(t, err)
	assert.Equal(t, "u2", msg.ParticipantID())
	messages.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestSendMessage_UnknownParticipant(t *testing.T) {
	service, messages, profiles, _ := newTestService()
	profiles.On("GetByID", mock.Anything, "u9").Return(nil, repository.ErrNotFound)

	_, err := service.SendMessage(context.Background(), "u9", "hello")

	assert.ErrorIs(t, err, apperrors.ErrParticipantNotFound)
	messages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSendMessage_ToSupportDeskRejected(t *testing.T) {
	service, _, profiles, _ := newTestService()

	_, err := service.SendMessage(context.Background(), "support", "hello")

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	profiles.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestSendMessage_BodyValidation(t *testing.T) {
	service, messages, _, _ := newTestService()

	_, err := service.SendMessage(context.Background(), "u2", " \n ")
	assert.ErrorIs(t, err, apperrors.ErrEmptyMessage)
	assert.Equal(t, apperrors.CodeEmptyMessage, apperrors.GetErrorCode(err))

	_, err = service.SendMessage(context.Background(), "u2", strings.Repeat("x", 21))
	assert.ErrorIs(t, err, apperrors.ErrMessageTooLong)
	assert.Equal(t, apperrors.CodeMessageTooLong, apperrors.GetErrorCode(err))

	messages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSendMessage_PublishFailureStillSucceeds(t *testing.T) {
	service, messages, profiles, publisher := newTestService()
	profiles.On("GetByID", mock.Anything, "u2").Return(&models.Profile{ID: "u2"}, nil)
	messages.On("Create", mock.Anything, mock.Anything).Return(nil)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(realtime.ErrFeedClosed)

	msg, err := service.SendMessage(context.Background(), "u2", "hello")

	require.NoError(t, err)
	assert.NotNil(t, msg)
}

// ==================== ReplyMessage Tests ====================

func TestReplyMessage_RoutesToAnchorThread(t *testing.T) {
	service, messages, _, publisher := newTestService()
	anchor := &models.Message{ID: "m1", SenderID: "u1", ReceiverID: "support", Status: models.StatusUnread}
	messages.On("GetByID", mock.Anything, "m1").Return(anchor, nil)
	messages.On("Create", mock.Anything, mock.MatchedBy(func(m *models.Message) bool {
		return m.IsAdminReply && m.ReceiverID == "u1" && m.SenderID == "support"
	})).Return(nil)
	publisher.On("Publish", mock.Anything, isInsert("u1")).Return(nil)

	msg, err := service.ReplyMessage(context.Background(), "m1", "On its way")

	require.NoError(t, err)
	assert.Equal(t, "u1", msg.ReceiverID)
	publisher.AssertExpectations(t)
}

func TestReplyMessage_AnchorIsStaffReply(t *testing.T) {
	service, messages, _, publisher := newTestService()
	anchor := &models.Message{ID: "m2", SenderID: "support", ReceiverID: "u3", IsAdminReply: true}
	messages.On("GetByID", mock.Anything, "m2").Return(anchor, nil)
	messages.On("Create", mock.Anything, mock.MatchedBy(func(m *models.Message) bool {
		return m.ReceiverID == "u3"
	})).Return(nil)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	_, err := service.ReplyMessage(context.Background(), "m2", "follow up")

	assert.NoError(t, err)
}

func TestReplyMessage_AnchorNotFound(t *testing.T) {
	service, messages, _, _ := newTestService()
	messages.On("GetByID", mock.Anything, "missing").Return(nil, repository.ErrNotFound)

	_, err := service.ReplyMessage(context.Background(), "missing", "hello")

	assert.ErrorIs(t, err, apperrors.ErrMessageNotFound)
	assert.True(t, apperrors.IsNotFound(err))
}

// ==================== ReceiveCustomerMessage Tests ====================

func TestReceiveCustomerMessage_Success(t *testing.T) {
	service, messages, _, publisher := newTestService()
	messages.On("Create", mock.Anything, mock.MatchedBy(func(m *models.Message) bool {
		return !m.IsAdminReply &&
			m.SenderID == "u1" &&
			m.ReceiverID == "support" &&
			m.Status == models.StatusUnread &&
			m.AuthorDisplayName == "Ana"
	})).Return(nil)
	publisher.On("Publish", mock.Anything, isInsert("u1")).Return(nil)

	msg, err := service.ReceiveCustomerMessage(context.Background(), InboundMessage{
		SenderID:          "u1",
		AuthorDisplayName: " Ana\x00 ",
		Body:              "Where is my order?",
	})

	require.NoError(t, err)
	assert.Equal(t, "u1", msg.ParticipantID())
	publisher.AssertExpectations(t)
}

func TestReceiveCustomerMessage_SupportIdentityForbidden(t *testing.T) {
	service, messages, _, _ := newTestService()

	_, err := service.ReceiveCustomerMessage(context.Background(), InboundMessage{SenderID: "support", Body: "hi"})

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	messages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// ==================== MarkRead Tests ====================

func TestMarkRead_PublishesUpdate(t *testing.T) {
	service, messages, _, publisher := newTestService()
	read := &models.Message{ID: "m1", SenderID: "u1", ReceiverID: "support", Status: models.StatusRead}
	messages.On("MarkAsRead", mock.Anything, "m1").Return(true, nil)
	messages.On("GetByID", mock.Anything, "m1").Return(read, nil)
	publisher.On("Publish", mock.Anything, mock.MatchedBy(func(ev realtime.Event) bool {
		return ev.Type == realtime.EventUpdate && ev.Record.ID == "m1" && ev.Record.Status == models.StatusRead
	})).Return(nil)

	err := service.MarkRead(context.Background(), "m1")

	require.NoError(t, err)
	publisher.AssertExpectations(t)
}

func TestMarkRead_AlreadyReadIsQuiet(t *testing.T) {
	service, messages, _, publisher := newTestService()
	messages.On("MarkAsRead", mock.Anything, "m1").Return(false, nil)

	err := service.MarkRead(context.Background(), "m1")

	assert.NoError(t, err)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestMarkRead_NotFound(t *testing.T) {
	service, messages, _, _ := newTestService()
	messages.On("MarkAsRead", mock.Anything, "missing").Return(false, repository.ErrNotFound)

	err := service.MarkRead(context.Background(), "missing")

	assert.ErrorIs(t, err, apperrors.ErrMessageNotFound)
}

// ==================== Profile Tests ====================

func TestUpsertProfile_DefaultsRole(t *testing.T) {
	service, _, profiles, _ := newTestService()
	profiles.On("Upsert", mock.Anything, mock.MatchedBy(func(p *models.Profile) bool {
		return p.ID == "u1" && p.Role == models.RoleCustomer && p.FullName == "Ana Putri"
	})).Return(nil)

	err := service.UpsertProfile(context.Background(), &models.Profile{ID: "u1", FullName: "  Ana Putri ", Email: "ana@example.com"})

	require.NoError(t, err)
	profiles.AssertExpectations(t)
}

func TestUpsertProfile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		profile *models.Profile
	}{
		{"nil profile", nil},
		{"missing id", &models.Profile{FullName: "Ana"}},
		{"bad email", &models.Profile{ID: "u1", Email: "not-an-email"}},
		{"unknown role", &models.Profile{ID: "u1", Role: "owner"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, _, profiles, _ := newTestService()

			err := service.UpsertProfile(context.Background(), tt.profile)

			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			profiles.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
		})
	}
}

func TestListAllProfiles_Error(t *testing.T) {
	service, _, profiles, _ := newTestService()
	profiles.On("List", mock.Anything).Return(nil, errors.New("db down"))

	_, err := service.ListAllProfiles(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list profiles")
}

func TestUnreadSummary_PassesThrough(t *testing.T) {
	service, messages, _, _ := newTestService()
	counts := []models.UnreadCount{{ParticipantID: "u1", UnreadCount: 2}}
	messages.On("UnreadSummary", mock.Anything).Return(counts, nil)

	result, err := service.UnreadSummary(context.Background())

	require.NoError(t, err)
	assert.Equal(t, counts, result)
}

func TestNewMessageService_NilPublisher(t *testing.T) {
	messages := new(MockMessageRepository)
	profiles := new(MockProfileRepository)
	messages.On("Create", mock.Anything, mock.Anything).Return(nil)
	service := NewMessageService(messages, profiles, nil, testConfig, nil)

	_, err := service.ReceiveCustomerMessage(context.Background(), InboundMessage{SenderID: "u1", Body: "hi"})

	assert.NoError(t, err)
}
