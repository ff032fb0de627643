package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	apperrors "github.com/welldanyogia/webrana-shopdesk-backend/internal/errors"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/metrics"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/models"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/realtime"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/threads"
)

// Route is the store action a send is dispatched to
type Route string

const (
	// RouteReply answers the latest customer message
	RouteReply Route = "reply"
	// RouteNew starts a conversation with the participant
	RouteNew Route = "new"
)

// KeyCode identifies a composer key press
type KeyCode int

const (
	KeyRune KeyCode = iota
	KeyEnter
	KeyBackspace
)

// Key is a single key press in the composer
type Key struct {
	Code  KeyCode
	Rune  rune
	Shift bool
}

// ThreadOptions configures a ThreadView
type ThreadOptions struct {
	Viewer    threads.Viewer
	Profile   *models.Profile
	MaxLength int
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// ThreadView drives one open conversation: it merges realtime events
// immediately, marks the counterpart's messages as read and sends from the composer.
type ThreadView struct {
	store         Store
	feed          realtime.Feed
	set           *MessageSet
	participantID string
	opts          ThreadOptions
	composer      *Composer
	reconciler    *ReadReconciler

	mu       sync.Mutex
	ctx      context.Context
	sub      realtime.Subscription
	sendErr  error
	lastID   string
	opened   bool
	closed   bool
	onScroll func(lastMessageID string)
	onChange func()
}

// NewThreadView creates a view of participantID over set
func NewThreadView(store Store, feed realtime.Feed, set *MessageSet, participantID string, opts ThreadOptions) *ThreadView {
	if set == nil {
		set = NewMessageSet()
	}
	return &ThreadView{
		store:         store,
		feed:          feed,
		set:           set,
		participantID: participantID,
		opts:          opts,
		composer:      NewComposer(opts.MaxLength),
		reconciler:    NewReadReconciler(store, set, opts.Logger, opts.Metrics),
	}
}

// OnScroll sets the callback fired with the newest message id after every list change
func (v *ThreadView) OnScroll(fn func(lastMessageID string)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onScroll = fn
}

// OnChange sets the callback fired after every merge into the thread
func (v *ThreadView) OnChange(fn func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onChange = fn
}

func (v *ThreadView) ParticipantID() string {
	return v.participantID
}

func (v *ThreadView) Composer() *Composer {
	return v.composer
}

// Open subscribes to the participant topic and marks the held unread
// messages of the counterpart as read
func (v *ThreadView) Open(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	if v.opened {
		v.mu.Unlock()
		return ErrAlreadyStarted
	}
	v.opened = true
	v.ctx = ctx
	v.mu.Unlock()

	sub, err := v.feed.Subscribe(realtime.ParticipantTopic(v.participantID), v.handleEvent)
	if err != nil {
		return fmt.Errorf("failed to subscribe to thread: %w", err)
	}

	v.mu.Lock()
	v.sub = sub
	v.mu.Unlock()

	v.afterChange()
	return nil
}

func (v *ThreadView) handleEvent(ev realtime.Event) {
	if ev.Validate() != nil || ev.Record.ParticipantID() != v.participantID {
		return
	}
	if !Relevant(v.opts.Viewer, ev) {
		return
	}
	v.mu.Lock()
	closed := v.closed
	v.mu.Unlock()
	if closed {
		return
	}
	if v.set.Merge(ev.Record) {
		v.opts.Metrics.RealtimeEvent(string(ev.Type), metrics.OutcomeMerged)
		v.afterChange()
	}
}

// afterChange scrolls to the newest message on every list change, older
// history included, and reconciles read state
func (v *ThreadView) afterChange() {
	msgs := v.Messages()

	v.mu.Lock()
	ctx := v.ctx
	onScroll := v.onScroll
	onChange := v.onChange
	scrolled := false
	if n := len(msgs); n > 0 {
		v.lastID = msgs[n-1].ID
		scrolled = true
	}
	lastID := v.lastID
	v.mu.Unlock()

	if ctx != nil {
		v.reconciler.MarkUnreadAsRead(ctx, threads.Thread{ParticipantID: v.participantID, Messages: msgs}, v.opts.Viewer.IsAdmin)
	}
	if onChange != nil {
		onChange()
	}
	if scrolled && onScroll != nil {
		onScroll(lastID)
	}
}

// Messages returns the thread's messages in display order
func (v *ThreadView) Messages() []models.Message {
	return v.set.ForParticipant(v.participantID)
}

// Thread returns the grouped thread, or an empty one for a participant without messages
func (v *ThreadView) Thread() threads.Thread {
	var profiles []models.Profile
	if v.opts.Profile != nil {
		profiles = []models.Profile{*v.opts.Profile}
	}
	return groupedOrEmpty(threads.Group(v.Messages(), profiles, v.opts.Viewer), v.participantID)
}

func groupedOrEmpty(grouped []threads.Thread, participantID string) threads.Thread {
	for _, t := range grouped {
		if t.ParticipantID == participantID {
			return t
		}
	}
	return threads.Thread{
		ParticipantID: participantID,
		Name:          models.UnknownParticipantLabel,
		Messages:      []models.Message{},
		LastMessage:   models.Message{Body: threads.EmptyThreadPreview, Status: models.StatusRead},
		IsNew:         true,
	}
}

// Route picks the send action: a reply anchored on the latest customer
// message when the thread has one, a new message to the participant otherwise.
// The returned target is the anchor message id or the participant id.
func (v *ThreadView) Route() (Route, string) {
	msgs := v.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if !msgs[i].IsAdminReply {
			return RouteReply, msgs[i].ID
		}
	}
	return RouteNew, v.participantID
}

// Send dispatches the composer draft. On failure the draft is kept and the
// error is available from SendError.
func (v *ThreadView) Send(ctx context.Context) (*models.Message, error) {
	if !v.opts.Viewer.IsAdmin {
		return nil, v.setSendError(apperrors.ErrSendNotPermitted)
	}
	if err := v.composer.Validate(); err != nil {
		return nil, v.setSendError(err)
	}
	body := v.composer.Draft()

	route, target := v.Route()
	var (
		msg *models.Message
		err error
	)
	switch route {
	case RouteReply:
		msg, err = v.store.ReplyMessage(ctx, target, body)
	default:
		msg, err = v.store.SendMessage(ctx, target, body)
	}
	v.opts.Metrics.Send(string(route), err)
	if err != nil {
		if v.opts.Logger != nil {
			v.opts.Logger.Warn("send failed", slog.String("route", string(route)), slog.Any("error", err))
		}
		return nil, v.setSendError(fmt.Errorf("failed to send message: %w", err))
	}

	v.composer.Clear()
	v.setSendError(nil)
	if msg != nil && v.set.Merge(*msg) {
		v.afterChange()
	}
	return msg, nil
}

// SendError returns the error of the last failed send, nil after a success
func (v *ThreadView) SendError() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sendErr
}

func (v *ThreadView) setSendError(err error) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sendErr = err
	return err
}

// HandleKey applies a composer key press. Enter sends, Shift+Enter inserts a newline.
// It reports whether a message was sent.
func (v *ThreadView) HandleKey(ctx context.Context, key Key) (bool, error) {
	switch key.Code {
	case KeyEnter:
		if key.Shift {
			v.composer.Insert("\n")
			return false, nil
		}
		if _, err := v.Send(ctx); err != nil {
			return false, err
		}
		return true, nil
	case KeyBackspace:
		v.composer.Backspace()
	default:
		v.composer.Insert(string(key.Rune))
	}
	return false, nil
}

// Close unsubscribes from the participant topic. In-flight mark-read calls are not waited for.
func (v *ThreadView) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	sub := v.sub
	v.sub = nil
	v.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

// Wait blocks until dispatched mark-read calls have finished
func (v *ThreadView) Wait() {
	v.reconciler.Wait()
}
