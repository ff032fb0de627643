package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/welldanyogia/webrana-shopdesk-backend/internal/metrics"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/models"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/realtime"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/threads"
)

const (
	// DefaultRecentLimit is the size of the recent-message window
	DefaultRecentLimit = 100
	// DefaultDebounceWindow is the quiet period of the admin-wide feed
	DefaultDebounceWindow = 300 * time.Millisecond
)

var (
	ErrAlreadyStarted = errors.New("inbox controller already started")
	ErrNotStarted     = errors.New("inbox controller not started")
	ErrClosed         = errors.New("inbox controller closed")
)

// LoadState tracks how much of a conversation has been fetched
type LoadState int

const (
	// LoadPartial means only the recent window is held
	LoadPartial LoadState = iota
	// LoadLoading means the full conversation is being fetched
	LoadLoading
	// LoadComplete means the full conversation has been merged
	LoadComplete
)

func (s LoadState) String() string {
	switch s {
	case LoadLoading:
		return "loading"
	case LoadComplete:
		return "complete"
	default:
		return "partial"
	}
}

// Notice is a transient, non-blocking failure shown to the user
type Notice struct {
	Op  string
	Err error
}

func (n Notice) String() string {
	return fmt.Sprintf("%s failed: %v", n.Op, n.Err)
}

// Options configures a Controller
type Options struct {
	Viewer         threads.Viewer
	RecentLimit    int
	DebounceWindow time.Duration
	Ordering       threads.Ordering
	MaxLength      int
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
}

func (o Options) withDefaults() Options {
	if o.RecentLimit <= 0 {
		o.RecentLimit = DefaultRecentLimit
	}
	if o.DebounceWindow <= 0 {
		o.DebounceWindow = DefaultDebounceWindow
	}
	return o
}

// Controller drives the inbox: it loads the recent window, keeps it in sync
// with the realtime feed and lazily loads full conversations.
type Controller struct {
	store    Store
	feed     realtime.Feed
	opts     Options
	messages *MessageSet

	mu              sync.Mutex
	profiles        []models.Profile
	profilesVersion uint64
	filter          threads.Filter
	selected        string
	loads           map[string]LoadState
	memo            threadMemo
	pending         []realtime.Event
	started         bool
	closed          bool

	ctx      context.Context
	cancel   context.CancelFunc
	sub      realtime.Subscription
	debounce *Debouncer

	onNotice func(Notice)
	onNotify func(models.Message)
	onChange func()
}

type threadMemo struct {
	valid           bool
	messagesVersion uint64
	profilesVersion uint64
	filter          threads.Filter
	all             []threads.Thread
	filtered        []threads.Thread
}

// NewController creates a new Controller instance
func NewController(store Store, feed realtime.Feed, opts Options) *Controller {
	opts = opts.withDefaults()
	return &Controller{
		store:    store,
		feed:     feed,
		opts:     opts,
		messages: NewMessageSet(),
		loads:    make(map[string]LoadState),
	}
}

// OnNotice sets the callback for transient failures
func (c *Controller) OnNotice(fn func(Notice)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onNotice = fn
}

// OnNotify sets the callback for new-message notifications
func (c *Controller) OnNotify(fn func(models.Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onNotify = fn
}

// OnChange sets the callback run after every change of the held messages
func (c *Controller) OnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// Messages exposes the collection shared with thread views
func (c *Controller) Messages() *MessageSet {
	return c.messages
}

func (c *Controller) Viewer() threads.Viewer {
	return c.opts.Viewer
}

// Start subscribes to the feed and loads the recent window. Staff subscribe
// to every event with debounced refetches; customers subscribe to their own
// topic and merge events immediately. A failed initial load is reported as a
// notice and returned; the controller stays subscribed and Refresh may recover.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.ctx, c.cancel = context.WithCancel(ctx)
	if c.opts.Viewer.IsAdmin {
		c.debounce = NewDebouncer(c.opts.DebounceWindow, c.flush)
	}
	c.mu.Unlock()

	var (
		sub realtime.Subscription
		err error
	)
	if c.opts.Viewer.IsAdmin {
		sub, err = c.feed.Subscribe(realtime.TopicAll, c.handleAdminEvent)
	} else {
		sub, err = c.feed.Subscribe(realtime.ParticipantTopic(c.opts.Viewer.ID), c.handleParticipantEvent)
	}
	if err != nil {
		c.cancel()
		return fmt.Errorf("failed to subscribe to realtime feed: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		sub.Unsubscribe()
		return ErrClosed
	}
	c.sub = sub
	c.mu.Unlock()

	return c.Refresh(c.ctx)
}

// Refresh fetches the recent window, and the profile directory for staff,
// and merges them into the held state. Nothing held is discarded on failure.
func (c *Controller) Refresh(ctx context.Context) error {
	msgs, err := c.store.ListRecentMessages(ctx, c.opts.RecentLimit)
	if err != nil {
		c.notice("load messages", err)
		return fmt.Errorf("failed to load recent messages: %w", err)
	}

	var profiles []models.Profile
	var profileErr error
	if c.opts.Viewer.IsAdmin {
		profiles, profileErr = c.store.ListAllProfiles(ctx)
		if profileErr != nil {
			c.notice("load profiles", profileErr)
		}
	}

	if ctx.Err() != nil || c.isClosed() {
		return ctx.Err()
	}

	changed := c.messages.Merge(relevantOnly(c.opts.Viewer, msgs)...)
	if c.opts.Viewer.IsAdmin && profileErr == nil {
		c.mu.Lock()
		c.profiles = profiles
		c.profilesVersion++
		c.mu.Unlock()
		changed = true
	}
	if changed {
		c.changed()
	}

	if profileErr != nil {
		return fmt.Errorf("failed to load profiles: %w", profileErr)
	}
	return nil
}

func (c *Controller) handleAdminEvent(ev realtime.Event) {
	if !Relevant(c.opts.Viewer, ev) {
		c.opts.Metrics.RealtimeEvent(string(ev.Type), metrics.OutcomeIgnored)
		return
	}
	if ShouldNotify(c.opts.Viewer, ev) {
		c.notify(ev.Record)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.pending = append(c.pending, ev)
	c.mu.Unlock()

	c.debounce.Trigger()
}

// flush runs one debounced refetch-and-merge cycle
func (c *Controller) flush() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	pending := c.pending
	c.pending = nil
	ctx := c.ctx
	c.mu.Unlock()

	c.opts.Metrics.RefetchCycle()

	records := make([]models.Message, 0, len(pending))
	for _, ev := range pending {
		records = append(records, ev.Record)
	}
	c.messages.Merge(records...)

	if err := c.Refresh(ctx); err != nil && c.opts.Logger != nil {
		c.opts.Logger.Debug("debounced refetch failed", slog.Any("error", err))
	}
}

func (c *Controller) handleParticipantEvent(ev realtime.Event) {
	if !Relevant(c.opts.Viewer, ev) || c.isClosed() {
		c.opts.Metrics.RealtimeEvent(string(ev.Type), metrics.OutcomeIgnored)
		return
	}
	if c.messages.Merge(ev.Record) {
		c.opts.Metrics.RealtimeEvent(string(ev.Type), metrics.OutcomeMerged)
		c.changed()
	}
	if ShouldNotify(c.opts.Viewer, ev) {
		c.notify(ev.Record)
	}
}

// Threads returns the filtered inbox, recomputed only when the held
// messages, profiles or filter changed
func (c *Controller) Threads() []threads.Thread {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshMemoLocked()
	return append([]threads.Thread(nil), c.memo.filtered...)
}

// Thread returns the unfiltered thread of a participant
func (c *Controller) Thread(participantID string) (threads.Thread, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshMemoLocked()
	for _, t := range c.memo.all {
		if t.ParticipantID == participantID {
			return t, true
		}
	}
	return threads.Thread{}, false
}

func (c *Controller) refreshMemoLocked() {
	version := c.messages.Version()
	if c.memo.valid &&
		c.memo.messagesVersion == version &&
		c.memo.profilesVersion == c.profilesVersion &&
		c.memo.filter == c.filter {
		return
	}

	if !c.memo.valid || c.memo.messagesVersion != version || c.memo.profilesVersion != c.profilesVersion {
		all := threads.Group(c.messages.Messages(), c.profiles, c.opts.Viewer)
		threads.Sort(all, c.opts.Ordering)
		c.memo.all = all
	}
	c.memo.filtered = c.filter.Apply(c.memo.all)
	c.memo.messagesVersion = version
	c.memo.profilesVersion = c.profilesVersion
	c.memo.filter = c.filter
	c.memo.valid = true
}

// SetFilter switches between all and unread threads
func (c *Controller) SetFilter(mode threads.FilterMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter.Mode = mode
}

// SetQuery sets the name/email search
func (c *Controller) SetQuery(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter.Query = query
}

func (c *Controller) Filter() threads.Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// Select makes participantID the active thread and loads its full history
// once per session. A failed load leaves the thread Partial so it can be retried.
func (c *Controller) Select(ctx context.Context, participantID string) (threads.Thread, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return threads.Thread{}, ErrClosed
	}
	c.selected = participantID
	state := c.loads[participantID]
	if state == LoadPartial {
		c.loads[participantID] = LoadLoading
	}
	c.mu.Unlock()

	if state == LoadPartial {
		if err := c.loadConversation(ctx, participantID); err != nil {
			return c.threadOrEmpty(participantID), err
		}
	}
	return c.threadOrEmpty(participantID), nil
}

func (c *Controller) loadConversation(ctx context.Context, participantID string) error {
	msgs, err := c.store.ListConversation(ctx, participantID)
	c.opts.Metrics.ConversationLoad(err)
	if err != nil {
		c.mu.Lock()
		c.loads[participantID] = LoadPartial
		c.mu.Unlock()
		c.notice("load conversation", err)
		return fmt.Errorf("failed to load conversation: %w", err)
	}

	changed := c.messages.Merge(relevantOnly(c.opts.Viewer, msgs)...)
	c.mu.Lock()
	c.loads[participantID] = LoadComplete
	c.mu.Unlock()
	if changed {
		c.changed()
	}
	return nil
}

func (c *Controller) threadOrEmpty(participantID string) threads.Thread {
	if t, ok := c.Thread(participantID); ok {
		return t
	}
	return threads.Thread{ParticipantID: participantID, Name: models.UnknownParticipantLabel, Messages: []models.Message{}}
}

// LoadState returns how much of a participant's conversation is held
func (c *Controller) LoadState(participantID string) LoadState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads[participantID]
}

func (c *Controller) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// OpenThread selects participantID and returns an opened view over the
// shared message collection. The caller closes the view.
func (c *Controller) OpenThread(ctx context.Context, participantID string) (*ThreadView, error) {
	// A failed load has already been raised as a notice; the view falls back to the recent window.
	if _, err := c.Select(ctx, participantID); errors.Is(err, ErrClosed) {
		return nil, err
	}

	var profile *models.Profile
	c.mu.Lock()
	for i := range c.profiles {
		if c.profiles[i].ID == participantID {
			p := c.profiles[i]
			profile = &p
			break
		}
	}
	c.mu.Unlock()

	view := NewThreadView(c.store, c.feed, c.messages, participantID, ThreadOptions{
		Viewer:    c.opts.Viewer,
		Profile:   profile,
		MaxLength: c.opts.MaxLength,
		Logger:    c.opts.Logger,
		Metrics:   c.opts.Metrics,
	})
	view.OnChange(c.changed)
	if err := view.Open(ctx); err != nil {
		return nil, err
	}
	return view, nil
}

// Close unsubscribes from the feed and cancels pending work. It is safe to call more than once.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.pending = nil
	sub := c.sub
	c.sub = nil
	cancel := c.cancel
	debounce := c.debounce
	c.mu.Unlock()

	if debounce != nil {
		debounce.Stop()
	}
	if sub != nil {
		sub.Unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Controller) changed() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (c *Controller) notice(op string, err error) {
	if c.opts.Logger != nil {
		c.opts.Logger.Warn("inbox operation failed", slog.String("op", op), slog.Any("error", err))
	}
	c.mu.Lock()
	fn := c.onNotice
	c.mu.Unlock()
	if fn != nil {
		fn(Notice{Op: op, Err: err})
	}
}

func (c *Controller) notify(msg models.Message) {
	c.mu.Lock()
	fn := c.onNotify
	c.mu.Unlock()
	if fn != nil {
		fn(msg)
	}
}
