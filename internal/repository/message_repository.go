package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/welldanyogia/webrana-shopdesk-backend/internal/models"
	"gorm.io/gorm"
)

// MessageRepository defines the interface for message data access
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id string) (*models.Message, error)
	ListRecent(ctx context.Context, limit int) ([]models.Message, error)
	ListConversation(ctx context.Context, participantID string) ([]models.Message, error)
	MarkAsRead(ctx context.Context, id string) (bool, error)
	UnreadSummary(ctx context.Context) ([]models.UnreadCount, error)
}

// messageRepository implements MessageRepository using GORM
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new MessageRepository instance
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create creates a new message
func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	result := r.db.WithContext(ctx).Create(message)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("failed to create message: %w", result.Error)
	}
	return nil
}

// GetByID retrieves a message by its ID
func (r *messageRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	var message models.Message
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&message)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get message by ID: %w", result.Error)
	}
	return &message, nil
}

// ListRecent retrieves the newest messages across all participants, newest first
func (r *messageRepository) ListRecent(ctx context.Context, limit int) ([]models.Message, error) {
	var messages []models.Message
	result := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&messages)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list recent messages: %w", result.Error)
	}
	return messages, nil
}

// ListConversation retrieves every message filed under a participant, oldest first
func (r *messageRepository) ListConversation(ctx context.Context, participantID string) ([]models.Message, error) {
	var messages []models.Message
	result := r.db.WithContext(ctx).
		Where("(is_admin_reply = ? AND sender_id = ?) OR (is_admin_reply = ? AND receiver_id = ?)",
			false, participantID, true, participantID).
		Order("created_at ASC").
		Find(&messages)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list conversation: %w", result.Error)
	}
	return messages, nil
}

// MarkAsRead moves an unread message to read. It reports whether the row
// changed; marking an already read message is a no-op.
func (r *messageRepository) MarkAsRead(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("id = ? AND status = ?", id, models.StatusUnread).
		Update("status", models.StatusRead)
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark message as read: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Message{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check message: %w", err)
	}
	if count == 0 {
		return false, ErrNotFound
	}
	return false, nil
}

// UnreadSummary counts unread customer messages per participant
func (r *messageRepository) UnreadSummary(ctx context.Context) ([]models.UnreadCount, error) {
	var counts []models.UnreadCount
	result := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Select("sender_id AS participant_id, COUNT(*) AS unread_count").
		Where("is_admin_reply = ? AND status = ?", false, models.StatusUnread).
		Group("sender_id").
		Order("unread_count DESC").
		Order("participant_id ASC").
		Scan(&counts)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to count unread messages: %w", result.Error)
	}
	return counts, nil
}
