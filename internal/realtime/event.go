// Package realtime carries message insert/update events from the server to
// subscribed consumers, in process or over a websocket.
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/welldanyogia/webrana-shopdesk-backend/internal/models"
)

// EventType is the kind of mutation an event describes
type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
)

// TableMessages is the only table the change feed carries
const TableMessages = "messages"

// TopicAll receives every message event
const TopicAll = "messages"

// ErrMalformedEvent is returned for events that are missing required fields
var ErrMalformedEvent = errors.New("malformed realtime event")

// Event is a single change of the message store
type Event struct {
	Type   EventType      `json:"event_type"`
	Table  string         `json:"table"`
	Record models.Message `json:"record"`
}

// NewEvent builds a messages-table event for msg
func NewEvent(eventType EventType, msg models.Message) Event {
	return Event{Type: eventType, Table: TableMessages, Record: msg}
}

// DecodeEvent parses and validates a JSON encoded event
func DecodeEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if err := ev.Validate(); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// Validate checks that the event carries everything consumers rely on
func (e Event) Validate() error {
	switch {
	case e.Type != EventInsert && e.Type != EventUpdate:
		return fmt.Errorf("%w: unknown event type %q", ErrMalformedEvent, e.Type)
	case e.Table != TableMessages:
		return fmt.Errorf("%w: unexpected table %q", ErrMalformedEvent, e.Table)
	case e.Record.ID == "":
		return fmt.Errorf("%w: record id is required", ErrMalformedEvent)
	case e.Record.SenderID == "" && e.Record.ReceiverID == "":
		return fmt.Errorf("%w: record has no participants", ErrMalformedEvent)
	case !e.Record.Status.Valid():
		return fmt.Errorf("%w: invalid status %q", ErrMalformedEvent, e.Record.Status)
	}
	return nil
}

// ParticipantTopic is the topic carrying the events of one participant
func ParticipantTopic(participantID string) string {
	return TopicAll + ":" + participantID
}

// ValidTopic reports whether topic is TopicAll or a participant topic
func ValidTopic(topic string) bool {
	if topic == TopicAll {
		return true
	}
	id, ok := strings.CutPrefix(topic, TopicAll+":")
	return ok && id != "" && len(id) <= 64
}

// TopicsFor returns every topic msg is published on
func TopicsFor(msg models.Message) []string {
	topics := []string{TopicAll}
	if msg.SenderID != "" {
		topics = append(topics, ParticipantTopic(msg.SenderID))
	}
	if msg.ReceiverID != "" && msg.ReceiverID != msg.SenderID {
		topics = append(topics, ParticipantTopic(msg.ReceiverID))
	}
	return topics
}
