package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/welldanyogia/webrana-shopdesk-backend/internal/metrics"
)

// FrameType represents the type of a websocket frame
type FrameType string

const (
	FrameSubscribe    FrameType = "subscribe"
	FrameUnsubscribe  FrameType = "unsubscribe"
	FrameSubscribed   FrameType = "subscribed"
	FrameUnsubscribed FrameType = "unsubscribed"
	FrameEvent        FrameType = "event"
	FrameError        FrameType = "error"
)

// Frame is the JSON envelope exchanged over the realtime websocket
type Frame struct {
	Type  FrameType `json:"type"`
	Topic string    `json:"topic,omitempty"`
	Event *Event    `json:"event,omitempty"`
	Error string    `json:"error,omitempty"`
}

// Hub maintains the set of active websocket clients and pushes events to
// the clients subscribed to each topic
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Topic subscriptions: topic -> set of clients
	subscriptions map[string]map[*Client]bool

	register    chan *Client
	unregister  chan *Client
	subscribe   chan *subscriptionRequest
	unsubscribe chan *subscriptionRequest
	broadcast   chan *broadcastMessage
	done        chan struct{}

	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type subscriptionRequest struct {
	client *Client
	topic  string
}

type broadcastMessage struct {
	topic   string
	message []byte
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		subscribe:     make(chan *subscriptionRequest),
		unsubscribe:   make(chan *subscriptionRequest),
		broadcast:     make(chan *broadcastMessage, 256),
		done:          make(chan struct{}),
		logger:        logger,
		metrics:       m,
	}
}

// Run starts the hub's main loop and returns when ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			close(h.done)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.metrics.ClientConnected()
			if h.logger != nil {
				h.logger.Debug("client registered")
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.removeLocked(client)
				h.metrics.ClientDisconnected()
			}
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client unregistered")
			}

		case req := <-h.subscribe:
			h.mu.Lock()
			if h.subscriptions[req.topic] == nil {
				h.subscriptions[req.topic] = make(map[*Client]bool)
			}
			h.subscriptions[req.topic][req.client] = true
			h.mu.Unlock()
			req.client.sendFrame(Frame{Type: FrameSubscribed, Topic: req.topic})
			if h.logger != nil {
				h.logger.Debug("client subscribed", slog.String("topic", req.topic))
			}

		case req := <-h.unsubscribe:
			h.mu.Lock()
			if subscribers, ok := h.subscriptions[req.topic]; ok {
				delete(subscribers, req.client)
				if len(subscribers) == 0 {
					delete(h.subscriptions, req.topic)
				}
			}
			h.mu.Unlock()
			req.client.sendFrame(Frame{Type: FrameUnsubscribed, Topic: req.topic})
			if h.logger != nil {
				h.logger.Debug("client unsubscribed", slog.String("topic", req.topic))
			}

		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.subscriptions[msg.topic] {
				if !client.enqueue(msg.message) && h.logger != nil {
					h.logger.Warn("client buffer full, skipping event", slog.String("topic", msg.topic))
				}
			}
			h.mu.RUnlock()
		}
	}
}

// removeLocked drops client from the hub. Callers must hold h.mu.
func (h *Hub) removeLocked(client *Client) {
	delete(h.clients, client)
	client.close()
	for topic, subscribers := range h.subscriptions {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.subscriptions, topic)
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		h.removeLocked(client)
		h.metrics.ClientDisconnected()
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.close()
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Subscribe subscribes a client to a topic
func (h *Hub) Subscribe(client *Client, topic string) {
	select {
	case h.subscribe <- &subscriptionRequest{client: client, topic: topic}:
	case <-h.done:
	}
}

// Unsubscribe unsubscribes a client from a topic
func (h *Hub) Unsubscribe(client *Client, topic string) {
	select {
	case h.unsubscribe <- &subscriptionRequest{client: client, topic: topic}:
	case <-h.done:
	}
}

// Publish pushes ev to the websocket clients of every topic it belongs to
func (h *Hub) Publish(ctx context.Context, ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	select {
	case <-h.done:
		return ErrFeedClosed
	default:
	}

	for _, topic := range TopicsFor(ev.Record) {
		data, err := json.Marshal(Frame{Type: FrameEvent, Topic: topic, Event: &ev})
		if err != nil {
			if h.logger != nil {
				h.logger.Error("failed to marshal event frame", slog.Any("error", err))
			}
			return err
		}

		select {
		case h.broadcast <- &broadcastMessage{topic: topic, message: data}:
		case <-h.done:
			return ErrFeedClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// ClientCount returns the number of registered clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SubscriberCount returns the number of clients subscribed to topic
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions[topic])
}
