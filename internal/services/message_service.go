package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	apperrors "github.com/welldanyogia/webrana-shopdesk-backend/internal/errors"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/inbox"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/models"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/realtime"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/repository"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/validator"
)

// Display names longer than this are cut
const maxDisplayNameLength = 255

// MessageServiceConfig holds configuration for the message service
type MessageServiceConfig struct {
	// SupportID is the sender id of every staff-authored message
	SupportID string
	// SupportName is stored as the author name of staff messages
	SupportName string
	// MaxMessageLength bounds message bodies in characters
	MaxMessageLength int
}

// InboundMessage is a customer message submitted by the storefront
type InboundMessage struct {
	SenderID          string
	AuthorDisplayName string
	Body              string
}

// MessageService defines the server actions of the support inbox
type MessageService interface {
	ListRecentMessages(ctx context.Context, limit int) ([]models.Message, error)
	ListConversation(ctx context.Context, participantID string) ([]models.Message, error)
	SendMessage(ctx context.Context, participantID, body string) (*models.Message, error)
	ReplyMessage(ctx context.Context, anchorMessageID, body string) (*models.Message, error)
	MarkRead(ctx context.Context, messageID string) error
	ListAllProfiles(ctx context.Context) ([]models.Profile, error)

	// ReceiveCustomerMessage stores a message written by a customer to the support desk
	ReceiveCustomerMessage(ctx context.Context, in InboundMessage) (*models.Message, error)
	// UnreadSummary counts unread customer messages per participant
	UnreadSummary(ctx context.Context) ([]models.UnreadCount, error)
	// UpsertProfile creates or refreshes a profile synced from the storefront
	UpsertProfile(ctx context.Context, profile *models.Profile) error
}

var _ inbox.Store = (MessageService)(nil)

// messageService implements MessageService
type messageService struct {
	messages  repository.MessageRepository
	profiles  repository.ProfileRepository
	publisher realtime.Publisher
	config    MessageServiceConfig
	logger    *slog.Logger
}

// NewMessageService creates a new MessageService instance. A nil publisher
// disables realtime events.
func NewMessageService(
	messages repository.MessageRepository,
	profiles repository.ProfileRepository,
	publisher realtime.Publisher,
	config MessageServiceConfig,
	logger *slog.Logger,
) MessageService {
	if publisher == nil {
		publisher = realtime.Discard
	}
	return &messageService{
		messages:  messages,
		profiles:  profiles,
		publisher: publisher,
		config:    config,
		logger:    logger,
	}
}

// ListRecentMessages returns the newest messages across every thread
func (s *messageService) ListRecentMessages(ctx context.Context, limit int) ([]models.Message, error) {
	limit, _ = validator.ValidatePagination(limit, 0)

	messages, err := s.messages.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent messages: %w", err)
	}
	return messages, nil
}

// ListConversation returns the full history with one participant
func (s *messageService) ListConversation(ctx context.Context, participantID string) ([]models.Message, error) {
	if err := checkParticipantID(participantID); err != nil {
		return nil, err
	}

	messages, err := s.messages.ListConversation(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation: %w", err)
	}
	return messages, nil
}

// SendMessage starts or continues a conversation from the support desk.
// The participant must be a known profile.
func (s *messageService) SendMessage(ctx context.Context, participantID, body string) (*models.Message, error) {
	if err := checkParticipantID(participantID); err != nil {
		return nil, err
	}
	if participantID == s.config.SupportID {
		return nil, apperrors.NewAppError(apperrors.ErrInvalidInput, "cannot send a message to the support desk itself", apperrors.CodeInvalidInput)
	}

	body, err := s.checkBody(body)
	if err != nil {
		return nil, err
	}

	if _, err := s.profiles.GetByID(ctx, participantID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to get participant profile: %w", err)
	}

	return s.createStaffMessage(ctx, participantID, body)
}

// ReplyMessage answers in the thread that holds the anchor message
func (s *messageService) ReplyMessage(ctx context.Context, anchorMessageID, body string) (*models.Message, error) {
	body, err := s.checkBody(body)
	if err != nil {
		return nil, err
	}

	anchor, err := s.messages.GetByID(ctx, anchorMessageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get anchor message: %w", err)
	}

	participantID := anchor.ParticipantID()
	if participantID == "" || participantID == s.config.SupportID {
		return nil, apperrors.NewAppError(apperrors.ErrInvalidInput, "anchor message has no customer side", apperrors.CodeInvalidInput)
	}

	return s.createStaffMessage(ctx, participantID, body)
}

func (s *messageService) createStaffMessage(ctx context.Context, participantID, body string) (*models.Message, error) {
	msg := &models.Message{
		SenderID:          s.config.SupportID,
		ReceiverID:        participantID,
		IsAdminReply:      true,
		Body:              body,
		Status:            models.StatusUnread,
		AuthorDisplayName: s.config.SupportName,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	s.publish(ctx, realtime.EventInsert, msg)
	return msg, nil
}

// ReceiveCustomerMessage stores a customer message addressed to the support desk
func (s *messageService) ReceiveCustomerMessage(ctx context.Context, in InboundMessage) (*models.Message, error) {
	if err := checkParticipantID(in.SenderID); err != nil {
		return nil, err
	}
	if in.SenderID == s.config.SupportID {
		return nil, apperrors.NewAppError(apperrors.ErrForbidden, "sender cannot be the support desk", apperrors.CodeForbidden)
	}

	body, err := s.checkBody(in.Body)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		SenderID:          in.SenderID,
		ReceiverID:        s.config.SupportID,
		IsAdminReply:      false,
		Body:              body,
		Status:            models.StatusUnread,
		AuthorDisplayName: validator.SanitizeString(in.AuthorDisplayName, maxDisplayNameLength),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	s.publish(ctx, realtime.EventInsert, msg)
	return msg, nil
}

// MarkRead moves a message from unread to read. Marking a read message again
// succeeds without publishing anything.
func (s *messageService) MarkRead(ctx context.Context, messageID string) error {
	changed, err := s.messages.MarkAsRead(ctx, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.ErrMessageNotFound
		}
		return fmt.Errorf("failed to mark message as read: %w", err)
	}
	if !changed {
		return nil
	}

	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		// The write went through; only the event is lost.
		if s.logger != nil {
			s.logger.Warn("failed to load message for update event",
				slog.String("message_id", messageID),
				slog.Any("error", err),
			)
		}
		return nil
	}

	s.publish(ctx, realtime.EventUpdate, msg)
	return nil
}

// ListAllProfiles returns every known profile
func (s *messageService) ListAllProfiles(ctx context.Context) ([]models.Profile, error) {
	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return profiles, nil
}

// UnreadSummary counts unread customer messages per participant
func (s *messageService) UnreadSummary(ctx context.Context) ([]models.UnreadCount, error) {
	counts, err := s.messages.UnreadSummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return counts, nil
}

// UpsertProfile validates and stores a profile
func (s *messageService) UpsertProfile(ctx context.Context, profile *models.Profile) error {
	if profile == nil {
		return apperrors.ErrInvalidInput
	}
	if err := checkParticipantID(profile.ID); err != nil {
		return err
	}

	profile.FullName = validator.SanitizeString(profile.FullName, maxDisplayNameLength)
	if profile.Email != "" {
		if err := validator.ValidateEmail(profile.Email); err != nil {
			return apperrors.NewAppError(apperrors.ErrInvalidInput, "invalid email address", apperrors.CodeInvalidInput)
		}
	}

	switch profile.Role {
	case "":
		profile.Role = models.RoleCustomer
	case models.RoleCustomer, models.RoleAdmin:
	default:
		return apperrors.NewAppError(apperrors.ErrInvalidInput, fmt.Sprintf("unknown role %q", profile.Role), apperrors.CodeInvalidInput)
	}

	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// publish emits a realtime event. The write is already committed, so a
// failed publish is logged and left to the clients' next refetch.
func (s *messageService) publish(ctx context.Context, eventType realtime.EventType, msg *models.Message) {
	if err := s.publisher.Publish(ctx, realtime.NewEvent(eventType, *msg)); err != nil && s.logger != nil {
		s.logger.Warn("failed to publish realtime event",
			slog.String("event_type", string(eventType)),
			slog.String("message_id", msg.ID),
			slog.Any("error", err),
		)
	}
}

func (s *messageService) checkBody(body string) (string, error) {
	body, err := validator.ValidateMessageBody(body, s.config.MaxMessageLength)
	switch {
	case errors.Is(err, validator.ErrEmptyInput):
		return "", apperrors.ErrEmptyMessage
	case errors.Is(err, validator.ErrInputTooLong):
		return "", apperrors.NewAppError(apperrors.ErrMessageTooLong,
			fmt.Sprintf("message body exceeds %d characters", s.config.MaxMessageLength),
			apperrors.CodeMessageTooLong)
	case err != nil:
		return "", apperrors.ErrInvalidInput
	}
	return body, nil
}

func checkParticipantID(id string) error {
	if err := validator.ValidateParticipantID(id); err != nil {
		return apperrors.NewAppError(apperrors.ErrInvalidInput, "invalid participant id: "+err.Error(), apperrors.CodeInvalidInput)
	}
	return nil
}
