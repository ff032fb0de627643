package threads

import "sort"

// Ordering selects how threads are arranged in the inbox
type Ordering int

const (
	// OrderByActivity puts the most recently active thread first; empty threads trail
	OrderByActivity Ordering = iota
	// OrderNewFirst pins empty threads on top, then orders by activity
	OrderNewFirst
)

// String returns the flag value of the ordering
func (o Ordering) String() string {
	switch o {
	case OrderNewFirst:
		return "new-first"
	default:
		return "activity"
	}
}

// ParseOrdering parses a flag value; unknown values fall back to OrderByActivity
func ParseOrdering(s string) Ordering {
	if s == "new-first" {
		return OrderNewFirst
	}
	return OrderByActivity
}

// Sort orders threads in place. The result only depends on thread contents,
// so re-sorting the same input always yields the same order.
func Sort(threads []Thread, policy Ordering) {
	sort.SliceStable(threads, func(i, j int) bool {
		a, b := &threads[i], &threads[j]
		aEmpty, bEmpty := len(a.Messages) == 0, len(b.Messages) == 0
		if aEmpty != bEmpty {
			if policy == OrderNewFirst {
				return aEmpty
			}
			return bEmpty
		}
		aAt, bAt := a.LastActivity(), b.LastActivity()
		if !aAt.Equal(bAt) {
			return aAt.After(bAt)
		}
		return a.ParticipantID < b.ParticipantID
	})
}
