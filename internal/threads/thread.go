// Package threads projects a flat list of messages onto per-participant
// conversation threads.
package threads

import (
	"time"

	"github.com/welldanyogia/webrana-shopdesk-backend/internal/models"
)

// EmptyThreadPreview is the preview body of a thread without messages
const EmptyThreadPreview = "No messages yet"

// Viewer identifies who is looking at the threads
type Viewer struct {
	ID      string
	IsAdmin bool
}

// Thread is a derived, non-persisted view of the messages exchanged with one participant
type Thread struct {
	ParticipantID string           `json:"participant_id"`
	Name          string           `json:"name"`
	Email         string           `json:"email,omitempty"`
	Messages      []models.Message `json:"messages"`
	LastMessage   models.Message   `json:"last_message"`
	UnreadCount   int              `json:"unread_count"`
	IsNew         bool             `json:"is_new"`
}

// LastActivity returns the timestamp of the latest message, zero for empty threads
func (t *Thread) LastActivity() time.Time {
	if len(t.Messages) == 0 {
		return time.Time{}
	}
	return t.Messages[len(t.Messages)-1].CreatedAt
}

// HasCustomerMessage reports whether the participant has written at least once
func (t *Thread) HasCustomerMessage() bool {
	for i := range t.Messages {
		if !t.Messages[i].IsAdminReply {
			return true
		}
	}
	return false
}

// LastCustomerMessage returns the latest message not authored by staff
func (t *Thread) LastCustomerMessage() (models.Message, bool) {
	for i := len(t.Messages) - 1; i >= 0; i-- {
		if !t.Messages[i].IsAdminReply {
			return t.Messages[i], true
		}
	}
	return models.Message{}, false
}

func placeholderMessage(participantID string) models.Message {
	return models.Message{
		ReceiverID:   participantID,
		IsAdminReply: true,
		Body:         EmptyThreadPreview,
		Status:       models.StatusRead,
	}
}
