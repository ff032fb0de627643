package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/realtime"
)

// MockPublisher implements realtime.Publisher and records every event it is given
type MockPublisher struct {
	mock.Mock

	mu     sync.Mutex
	Events []realtime.Event
}

// NewMockPublisher creates a new MockPublisher instance
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		Events: make([]realtime.Event, 0),
	}
}

// Publish records the event and returns the configured error
func (m *MockPublisher) Publish(ctx context.Context, ev realtime.Event) error {
	args := m.Called(ctx, ev)

	m.mu.Lock()
	m.Events = append(m.Events, ev)
	m.mu.Unlock()

	return args.Error(0)
}

// Recorded returns a copy of the recorded events
func (m *MockPublisher) Recorded() []realtime.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]realtime.Event, len(m.Events))
	copy(out, m.Events)
	return out
}

// Clear removes all recorded events
func (m *MockPublisher) Clear() {
	m.mu.Lock()
	m.Events = make([]realtime.Event, 0)
	m.mu.Unlock()
}
