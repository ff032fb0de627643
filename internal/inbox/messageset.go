package inbox

import (
	"sort"
	"sync"

	"github.com/welldanyogia/webrana-shopdesk-backend/internal/models"
)

// MessageSet is the single owned collection of known messages. Every
// mutation goes through Merge, which deduplicates by id and keeps the
// collection sorted by CreatedAt, so merges converge in any order.
type MessageSet struct {
	mu      sync.RWMutex
	byID    map[string]*setEntry
	entries []*setEntry
	seq     uint64
	version uint64
}

type setEntry struct {
	msg models.Message
	seq uint64
}

// NewMessageSet creates an empty MessageSet
func NewMessageSet() *MessageSet {
	return &MessageSet{byID: make(map[string]*setEntry)}
}

// Merge adds unknown messages and folds known ones into the held copy.
// The first copy of a message keeps its author flag and timestamp; status
// only moves forward. It reports whether anything changed.
func (s *MessageSet) Merge(msgs ...models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	added := false
	for _, msg := range msgs {
		if msg.ID == "" {
			continue
		}
		if existing, ok := s.byID[msg.ID]; ok {
			if fold(&existing.msg, &msg) {
				changed = true
			}
			continue
		}
		s.seq++
		entry := &setEntry{msg: msg, seq: s.seq}
		s.byID[msg.ID] = entry
		s.entries = append(s.entries, entry)
		added = true
	}

	if added {
		sort.SliceStable(s.entries, func(i, j int) bool {
			a, b := s.entries[i], s.entries[j]
			if !a.msg.CreatedAt.Equal(b.msg.CreatedAt) {
				return a.msg.CreatedAt.Before(b.msg.CreatedAt)
			}
			return a.seq < b.seq
		})
	}
	if added || changed {
		s.version++
		return true
	}
	return false
}

// fold applies the mutable fields of incoming onto held
func fold(held, incoming *models.Message) bool {
	changed := false
	if incoming.Status != held.Status && held.Status.CanTransition(incoming.Status) {
		held.Status = incoming.Status
		changed = true
	}
	if held.AuthorDisplayName == "" && incoming.AuthorDisplayName != "" {
		held.AuthorDisplayName = incoming.AuthorDisplayName
		changed = true
	}
	return changed
}

// MarkRead records a confirmed read of a held message
func (s *MessageSet) MarkRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.byID[id]
	if !ok || !fold(&entry.msg, &models.Message{Status: models.StatusRead}) {
		return false
	}
	s.version++
	return true
}

// Get returns the held copy of a message
func (s *MessageSet) Get(id string) (models.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.byID[id]
	if !ok {
		return models.Message{}, false
	}
	return entry.msg, true
}

// Messages returns a snapshot of all messages in display order
func (s *MessageSet) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Message, len(s.entries))
	for i, entry := range s.entries {
		out[i] = entry.msg
	}
	return out
}

// ForParticipant returns the messages of one thread in display order
func (s *MessageSet) ForParticipant(participantID string) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Message, 0)
	for _, entry := range s.entries {
		if entry.msg.ParticipantID() == participantID {
			out = append(out, entry.msg)
		}
	}
	return out
}

func (s *MessageSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Version increases whenever the collection changes
func (s *MessageSet) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
