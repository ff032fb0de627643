package threads

import "strings"

// FilterMode narrows the inbox to a subset of threads
type FilterMode string

const (
	FilterAll    FilterMode = "all"
	FilterUnread FilterMode = "unread"
)

// ParseFilterMode parses a filter mode; anything other than "unread" means all
func ParseFilterMode(s string) FilterMode {
	if strings.EqualFold(strings.TrimSpace(s), string(FilterUnread)) {
		return FilterUnread
	}
	return FilterAll
}

// Filter holds the inbox search state
type Filter struct {
	Mode  FilterMode
	Query string
}

// Matches reports whether the thread passes the filter
func (f Filter) Matches(t *Thread) bool {
	if f.Mode == FilterUnread && t.UnreadCount == 0 {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Name), q) ||
		strings.Contains(strings.ToLower(t.Email), q)
}

// Apply returns the threads that pass the filter, preserving order
func (f Filter) Apply(threads []Thread) []Thread {
	out := make([]Thread, 0, len(threads))
	for i := range threads {
		if f.Matches(&threads[i]) {
			out = append(out, threads[i])
		}
	}
	return out
}
