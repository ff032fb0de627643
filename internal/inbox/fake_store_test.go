package inbox

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	apperrors "github.com/welldanyogia/webrana-shopdesk-backend/internal/errors"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/models"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// fakeStore is an in-memory Store that counts calls
type fakeStore struct {
	mu       sync.Mutex
	messages []models.Message
	profiles []models.Profile
	calls    map[string]int
	marked   []string
	clock    int

	recentErr  error
	convErr    error
	sendErr    error
	markErr    error
	profileErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{calls: make(map[string]int)}
}

func (f *fakeStore) add(msgs ...models.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msgs...)
}

func (f *fakeStore) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeStore) markedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.marked...)
}

func (f *fakeStore) ListRecentMessages(ctx context.Context, limit int) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ListRecentMessages"]++
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	out := append([]models.Message(nil), f.messages...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) ListConversation(ctx context.Context, participantID string) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ListConversation"]++
	if f.convErr != nil {
		return nil, f.convErr
	}
	var out []models.Message
	for _, m := range f.messages {
		if m.ParticipantID() == participantID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) create(participantID, body string) *models.Message {
	f.clock++
	msg := models.Message{
		ID:           fmt.Sprintf("sent-%d", f.clock),
		SenderID:     "admin",
		ReceiverID:   participantID,
		IsAdminReply: true,
		Body:         body,
		Status:       models.StatusUnread,
		CreatedAt:    epoch.Add(time.Hour + time.Duration(f.clock)*time.Second),
	}
	f.messages = append(f.messages, msg)
	return &msg
}

func (f *fakeStore) SendMessage(ctx context.Context, participantID, body string) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["SendMessage"]++
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return f.create(participantID, body), nil
}

func (f *fakeStore) ReplyMessage(ctx context.Context, anchorMessageID, body string) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ReplyMessage"]++
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	for _, m := range f.messages {
		if m.ID == anchorMessageID {
			return f.create(m.ParticipantID(), body), nil
		}
	}
	return nil, apperrors.ErrMessageNotFound
}

func (f *fakeStore) MarkRead(ctx context.Context, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["MarkRead"]++
	f.marked = append(f.marked, messageID)
	if f.markErr != nil {
		return f.markErr
	}
	for i := range f.messages {
		if f.messages[i].ID == messageID {
			f.messages[i].Status = models.StatusRead
		}
	}
	return nil
}

func (f *fakeStore) ListAllProfiles(ctx context.Context) ([]models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["ListAllProfiles"]++
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return append([]models.Profile(nil), f.profiles...), nil
}

func customer(id, sender string, at int) models.Message {
	return models.Message{
		ID:         id,
		SenderID:   sender,
		ReceiverID: "admin",
		Body:       "question from " + sender,
		Status:     models.StatusUnread,
		CreatedAt:  epoch.Add(time.Duration(at) * time.Second),
	}
}

func staffReply(id, receiver string, at int) models.Message {
	return models.Message{
		ID:           id,
		SenderID:     "admin",
		ReceiverID:   receiver,
		IsAdminReply: true,
		Body:         "answer for " + receiver,
		Status:       models.StatusUnread,
		CreatedAt:    epoch.Add(time.Duration(at) * time.Second),
	}
}
