package inbox

import (
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/models"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/realtime"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/threads"
)

// Relevant reports whether ev concerns the viewer. Staff see every event;
// customers only see events of messages they sent or received.
func Relevant(viewer threads.Viewer, ev realtime.Event) bool {
	if ev.Validate() != nil {
		return false
	}
	return relevantRecord(viewer, ev.Record)
}

// relevantRecord applies the viewer rule of Relevant to a fetched message
func relevantRecord(viewer threads.Viewer, msg models.Message) bool {
	if viewer.IsAdmin {
		return true
	}
	return msg.SenderID == viewer.ID || msg.ReceiverID == viewer.ID
}

// relevantOnly drops fetched messages a customer viewer must not hold
func relevantOnly(viewer threads.Viewer, msgs []models.Message) []models.Message {
	if viewer.IsAdmin {
		return msgs
	}
	kept := make([]models.Message, 0, len(msgs))
	for _, msg := range msgs {
		if relevantRecord(viewer, msg) {
			kept = append(kept, msg)
		}
	}
	return kept
}

// ShouldNotify reports whether ev deserves a user-facing new-message notification:
// a customer message for staff, a staff reply addressed to the customer.
func ShouldNotify(viewer threads.Viewer, ev realtime.Event) bool {
	if ev.Type != realtime.EventInsert || !Relevant(viewer, ev) {
		return false
	}
	if viewer.IsAdmin {
		return !ev.Record.IsAdminReply
	}
	return ev.Record.IsAdminReply && ev.Record.ReceiverID == viewer.ID
}
