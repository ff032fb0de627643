package realtime

import (
	"context"
	"errors"
)

// Handler receives events delivered on a topic. Handlers of one subscription
// are called sequentially, in publish order.
type Handler func(Event)

// Subscription is the teardown handle of a Subscribe call
type Subscription interface {
	// Unsubscribe stops delivery. It is safe to call more than once.
	Unsubscribe()
}

// Feed delivers events for a topic
type Feed interface {
	Subscribe(topic string, h Handler) (Subscription, error)
}

// Publisher sends events to consumers
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// ErrFeedClosed is returned when subscribing to a closed feed
var ErrFeedClosed = errors.New("realtime feed closed")

// ErrInvalidTopic is returned for topics other than TopicAll or a participant topic
var ErrInvalidTopic = errors.New("invalid realtime topic")

// Fanout publishes every event to each publisher in turn
type Fanout []Publisher

// Publish delivers ev to all publishers and joins their errors
func (f Fanout) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard is a Publisher that drops every event
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(context.Context, Event) error { return nil }
