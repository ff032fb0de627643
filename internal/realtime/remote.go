package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/welldanyogia/webrana-shopdesk-backend/internal/metrics"
)

// RemoteFeed is a Feed served by a remote Hub over a websocket connection
type RemoteFeed struct {
	conn    *websocket.Conn
	logger  *slog.Logger
	metrics *metrics.Metrics

	// writeMu serializes writes; gorilla connections allow one concurrent writer
	writeMu sync.Mutex
	// subMu orders handler changes with their subscribe and unsubscribe frames
	subMu sync.Mutex

	mu       sync.Mutex
	handlers map[string]map[*remoteSubscription]struct{}
	closed   bool

	done      chan struct{}
	closeOnce sync.Once
	err       error
}

type remoteSubscription struct {
	feed    *RemoteFeed
	topic   string
	handler Handler
	once    sync.Once
}

// DialFeed connects to the realtime endpoint at url (ws:// or wss://)
func DialFeed(ctx context.Context, url string, header http.Header, logger *slog.Logger, m *metrics.Metrics) (*RemoteFeed, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}

	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to dial realtime feed: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to dial realtime feed: %w", err)
	}

	f := &RemoteFeed{
		conn:     conn,
		logger:   logger,
		metrics:  m,
		handlers: make(map[string]map[*remoteSubscription]struct{}),
		done:     make(chan struct{}),
	}
	go f.readLoop()
	return f, nil
}

// Subscribe registers h for topic and asks the server for the topic on first use
func (f *RemoteFeed) Subscribe(topic string, h Handler) (Subscription, error) {
	if !ValidTopic(topic) {
		return nil, ErrInvalidTopic
	}

	sub := &remoteSubscription{feed: f, topic: topic, handler: h}

	f.subMu.Lock()
	defer f.subMu.Unlock()

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrFeedClosed
	}
	first := len(f.handlers[topic]) == 0
	if first {
		f.handlers[topic] = make(map[*remoteSubscription]struct{})
	}
	f.handlers[topic][sub] = struct{}{}
	f.mu.Unlock()

	if first {
		if err := f.writeFrame(Frame{Type: FrameSubscribe, Topic: topic}); err != nil {
			sub.once.Do(func() { f.detach(sub) })
			return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
	}
	return sub, nil
}

// detach removes sub from the handler map and reports whether it was the
// topic's last handler on an open feed
func (f *RemoteFeed) detach(sub *remoteSubscription) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	last := false
	if subs, ok := f.handlers[sub.topic]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(f.handlers, sub.topic)
			last = true
		}
	}
	return last && !f.closed
}

// Done is closed when the connection has ended
func (f *RemoteFeed) Done() <-chan struct{} {
	return f.done
}

// Err returns the error that ended the connection, nil after Close
func (f *RemoteFeed) Err() error {
	<-f.done
	return f.err
}

// Close ends the connection and waits for the reader to stop
func (f *RemoteFeed) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()

	f.closeOnce.Do(func() {
		f.writeMu.Lock()
		f.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		f.writeMu.Unlock()
		f.conn.Close()
	})
	<-f.done
	return nil
}

func (f *RemoteFeed) writeFrame(frame Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	f.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return f.conn.WriteMessage(websocket.TextMessage, data)
}

func (f *RemoteFeed) readLoop() {
	defer close(f.done)

	for {
		_, data, err := f.conn.ReadMessage()
		if err != nil {
			f.mu.Lock()
			closed := f.closed
			f.closed = true
			f.mu.Unlock()
			if !closed && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				f.err = err
				if f.logger != nil {
					f.logger.Warn("realtime feed disconnected", slog.Any("error", err))
				}
			}
			return
		}
		f.dispatch(data)
	}
}

// dispatch delivers one frame. Malformed frames are dropped and reading continues.
func (f *RemoteFeed) dispatch(data []byte) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		f.drop("undecodable frame", err)
		return
	}

	switch frame.Type {
	case FrameEvent:
		if frame.Event == nil {
			f.drop("event frame without event", ErrMalformedEvent)
			return
		}
		if err := frame.Event.Validate(); err != nil {
			f.drop("invalid event", err)
			return
		}
	case FrameError:
		if f.logger != nil {
			f.logger.Warn("realtime server reported error", slog.String("error", frame.Error))
		}
		return
	default:
		return
	}

	f.mu.Lock()
	subs := make([]*remoteSubscription, 0, len(f.handlers[frame.Topic]))
	for sub := range f.handlers[frame.Topic] {
		subs = append(subs, sub)
	}
	f.mu.Unlock()

	for _, sub := range subs {
		sub.handler(*frame.Event)
	}
}

func (f *RemoteFeed) drop(reason string, err error) {
	f.metrics.RealtimeEvent("unknown", metrics.OutcomeMalformed)
	if f.logger != nil {
		f.logger.Debug("dropping realtime frame", slog.String("reason", reason), slog.Any("error", err))
	}
}

func (s *remoteSubscription) Unsubscribe() {
	s.once.Do(func() {
		f := s.feed
		f.subMu.Lock()
		defer f.subMu.Unlock()

		if !f.detach(s) {
			return
		}
		if err := f.writeFrame(Frame{Type: FrameUnsubscribe, Topic: s.topic}); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			if f.logger != nil {
				f.logger.Debug("failed to send unsubscribe", slog.String("topic", s.topic), slog.Any("error", err))
			}
		}
	})
}
