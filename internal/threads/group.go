package threads

import (
	"sort"

	"github.com/welldanyogia/webrana-shopdesk-backend/internal/models"
)

// Group partitions messages into one thread per participant.
//
// A message belongs to the thread of its receiver when staff authored it and
// to the thread of its sender otherwise. Messages inside a thread are ordered
// by CreatedAt with ties kept in input order. Admin viewers additionally get
// an empty thread for every profile they have not exchanged messages with.
//
// Group is pure: the same input always yields the same output.
func Group(messages []models.Message, profiles []models.Profile, viewer Viewer) []Thread {
	directory := make(map[string]*models.Profile, len(profiles))
	for i := range profiles {
		if profiles[i].ID == "" {
			continue
		}
		if _, seen := directory[profiles[i].ID]; !seen {
			directory[profiles[i].ID] = &profiles[i]
		}
	}

	partitions := make(map[string][]models.Message)
	order := make([]string, 0)
	for _, msg := range messages {
		key, ok := threadKey(&msg, viewer)
		if !ok {
			continue
		}
		if _, exists := partitions[key]; !exists {
			order = append(order, key)
		}
		partitions[key] = append(partitions[key], msg)
	}

	result := make([]Thread, 0, len(order)+len(directory))
	for _, key := range order {
		msgs := partitions[key]
		sort.SliceStable(msgs, func(i, j int) bool {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		})
		result = append(result, buildThread(key, msgs, directory[key], viewer))
	}

	if viewer.IsAdmin {
		for id, profile := range directory {
			if id == viewer.ID {
				continue
			}
			if _, exists := partitions[id]; exists {
				continue
			}
			result = append(result, buildEmptyThread(profile))
		}
	}

	Sort(result, OrderByActivity)
	return result
}

// UnreadFor counts messages the viewer has not read: unread and written by the counterpart
func UnreadFor(messages []models.Message, viewerIsAdmin bool) int {
	count := 0
	for i := range messages {
		if messages[i].IsUnread() && !messages[i].AuthoredBy(viewerIsAdmin) {
			count++
		}
	}
	return count
}

// threadKey resolves the participant a message is filed under. Self-addressed
// staff messages are re-keyed to the other party or dropped.
func threadKey(msg *models.Message, viewer Viewer) (string, bool) {
	key := msg.ParticipantID()
	if usableKey(key, viewer) {
		return key, true
	}
	other := msg.CounterpartID()
	if usableKey(other, viewer) {
		return other, true
	}
	return "", false
}

func usableKey(key string, viewer Viewer) bool {
	if key == "" {
		return false
	}
	if viewer.IsAdmin && key == viewer.ID {
		return false
	}
	return true
}

func buildThread(participantID string, msgs []models.Message, profile *models.Profile, viewer Viewer) Thread {
	t := Thread{
		ParticipantID: participantID,
		Messages:      msgs,
		LastMessage:   msgs[len(msgs)-1],
		UnreadCount:   UnreadFor(msgs, viewer.IsAdmin),
	}

	for i := len(msgs) - 1; i >= 0; i-- {
		if !msgs[i].IsAdminReply && msgs[i].AuthorDisplayName != "" {
			t.Name = msgs[i].AuthorDisplayName
			break
		}
	}
	if profile != nil {
		if t.Name == "" {
			t.Name = profile.DisplayLabel()
		}
		t.Email = profile.Email
	}
	if t.Name == "" {
		t.Name = models.UnknownParticipantLabel
	}
	return t
}

func buildEmptyThread(profile *models.Profile) Thread {
	return Thread{
		ParticipantID: profile.ID,
		Name:          profile.DisplayLabel(),
		Email:         profile.Email,
		Messages:      []models.Message{},
		LastMessage:   placeholderMessage(profile.ID),
		UnreadCount:   0,
		IsNew:         true,
	}
}
