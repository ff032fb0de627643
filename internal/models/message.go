package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageStatus is the read state of a message from the perspective of
// the party that did not author it
type MessageStatus string

const (
	StatusUnread MessageStatus = "unread"
	StatusRead   MessageStatus = "read"
)

// Valid reports whether s is a known status
func (s MessageStatus) Valid() bool {
	return s == StatusUnread || s == StatusRead
}

// CanTransition reports whether a message may move from s to next.
// Status only ever moves forward: unread -> read.
func (s MessageStatus) CanTransition(next MessageStatus) bool {
	if s == next {
		return true
	}
	return s == StatusUnread && next == StatusRead
}

// Message represents a single message exchanged between the support desk and a customer
type Message struct {
	ID                string        `gorm:"primaryKey;size:36" json:"id"`
	SenderID          string        `gorm:"not null;index;size:64" json:"sender_id"`
	ReceiverID        string        `gorm:"not null;index;size:64" json:"receiver_id"`
	IsAdminReply      bool          `gorm:"not null;default:false;index" json:"is_admin_reply"`
	Body              string        `gorm:"not null" json:"body"`
	Status            MessageStatus `gorm:"not null;size:16;default:unread;index" json:"status"`
	AuthorDisplayName string        `gorm:"size:255" json:"author_display_name,omitempty"`
	CreatedAt         time.Time     `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName returns the table name for Message
func (Message) TableName() string {
	return "messages"
}

// BeforeCreate assigns an ID and default status to new messages
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = StatusUnread
	}
	return nil
}

// ParticipantID returns the thread key of the message: the receiver when
// staff authored it, the sender otherwise.
func (m *Message) ParticipantID() string {
	if m.IsAdminReply {
		return m.ReceiverID
	}
	return m.SenderID
}

// CounterpartID returns the id on the other side of ParticipantID
func (m *Message) CounterpartID() string {
	if m.IsAdminReply {
		return m.SenderID
	}
	return m.ReceiverID
}

// IsUnread reports whether the message has not been read yet
func (m *Message) IsUnread() bool {
	return m.Status == StatusUnread
}

// AuthoredBy reports whether the message was written by the given side
func (m *Message) AuthoredBy(admin bool) bool {
	return m.IsAdminReply == admin
}

// UnreadCount is used for API responses that summarise unread customer messages
type UnreadCount struct {
	ParticipantID string `json:"participant_id"`
	UnreadCount   int64  `json:"unread_count"`
}
