package realtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/welldanyogia/webrana-shopdesk-backend/internal/metrics"
)

// subscriptionBuffer is the queue length of a single broker subscription
const subscriptionBuffer = 256

// Broker is an in-process Feed and Publisher
type Broker struct {
	mu      sync.RWMutex
	subs    map[string]map[*brokerSubscription]struct{}
	closed  bool
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type brokerSubscription struct {
	broker  *Broker
	topic   string
	handler Handler
	queue   chan Event
	done    chan struct{}
	once    sync.Once
}

// NewBroker creates a new Broker instance
func NewBroker(logger *slog.Logger, m *metrics.Metrics) *Broker {
	return &Broker{
		subs:    make(map[string]map[*brokerSubscription]struct{}),
		logger:  logger,
		metrics: m,
	}
}

// Subscribe registers h for topic. Each subscription is served by its own goroutine.
func (b *Broker) Subscribe(topic string, h Handler) (Subscription, error) {
	if !ValidTopic(topic) {
		return nil, ErrInvalidTopic
	}

	sub := &brokerSubscription{
		broker:  b,
		topic:   topic,
		handler: h,
		queue:   make(chan Event, subscriptionBuffer),
		done:    make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrFeedClosed
	}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[*brokerSubscription]struct{})
	}
	b.subs[topic][sub] = struct{}{}
	b.mu.Unlock()

	go sub.run()
	return sub, nil
}

// Publish queues ev on every subscription of its topics. Full queues drop the event.
func (b *Broker) Publish(ctx context.Context, ev Event) error {
	if err := ev.Validate(); err != nil {
		b.metrics.RealtimeEvent(string(ev.Type), metrics.OutcomeMalformed)
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, topic := range TopicsFor(ev.Record) {
		for sub := range b.subs[topic] {
			select {
			case sub.queue <- ev:
				b.metrics.RealtimeEvent(string(ev.Type), metrics.OutcomeDelivered)
			default:
				b.metrics.RealtimeEvent(string(ev.Type), metrics.OutcomeDropped)
				if b.logger != nil {
					b.logger.Warn("subscriber queue full, dropping event",
						slog.String("topic", topic),
						slog.String("message_id", ev.Record.ID))
				}
			}
		}
	}
	return nil
}

// Close stops every subscription
func (b *Broker) Close() {
	b.mu.Lock()
	b.closed = true
	var all []*brokerSubscription
	for _, subs := range b.subs {
		for sub := range subs {
			all = append(all, sub)
		}
	}
	b.mu.Unlock()

	for _, sub := range all {
		sub.Unsubscribe()
	}
}

// SubscriberCount returns the number of live subscriptions on topic
func (b *Broker) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

func (s *brokerSubscription) run() {
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.queue:
			select {
			case <-s.done:
				return
			default:
			}
			s.handler(ev)
		}
	}
}

func (s *brokerSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.broker.mu.Lock()
		if subs, ok := s.broker.subs[s.topic]; ok {
			delete(subs, s)
			if len(subs) == 0 {
				delete(s.broker.subs, s.topic)
			}
		}
		s.broker.mu.Unlock()
		close(s.done)
	})
}
