// Package inbox keeps a client-side view of the message store in sync with
// the realtime change feed and drives the inbox and thread screens on top of it.
package inbox

import (
	"context"

	"github.com/welldanyogia/webrana-shopdesk-backend/internal/models"
)

// Store is the message store the inbox reads from and writes to
type Store interface {
	// ListRecentMessages returns the newest messages across all threads
	ListRecentMessages(ctx context.Context, limit int) ([]models.Message, error)
	// ListConversation returns the full history with one participant
	ListConversation(ctx context.Context, participantID string) ([]models.Message, error)
	// SendMessage starts or continues a conversation initiated by staff
	SendMessage(ctx context.Context, participantID, body string) (*models.Message, error)
	// ReplyMessage answers in the thread that contains the anchor message
	ReplyMessage(ctx context.Context, anchorMessageID, body string) (*models.Message, error)
	MarkRead(ctx context.Context, messageID string) error
	ListAllProfiles(ctx context.Context) ([]models.Profile, error)
}
