package inbox

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/welldanyogia/webrana-shopdesk-backend/internal/metrics"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/models"
	"github.com/welldanyogia/webrana-shopdesk-backend/internal/threads"
)

// markReadTimeout bounds a single best-effort mark-read call
const markReadTimeout = 10 * time.Second

// Eligible reports whether the viewer may mark msg as read: it is unread and
// was written by the other side.
func Eligible(msg models.Message, viewerIsAdmin bool) bool {
	return msg.IsUnread() && msg.IsAdminReply != viewerIsAdmin
}

// ReadReconciler marks the counterpart's unread messages as read. Calls are
// fire-and-forget: each message is dispatched once, failures are logged at
// debug level and never retried.
type ReadReconciler struct {
	store   Store
	set     *MessageSet
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu         sync.Mutex
	dispatched map[string]struct{}
	wg         sync.WaitGroup
}

// NewReadReconciler creates a reconciler. When set is not nil, confirmed
// reads are recorded in it.
func NewReadReconciler(store Store, set *MessageSet, logger *slog.Logger, m *metrics.Metrics) *ReadReconciler {
	return &ReadReconciler{
		store:      store,
		set:        set,
		logger:     logger,
		metrics:    m,
		dispatched: make(map[string]struct{}),
	}
}

// MarkUnreadAsRead dispatches one MarkRead per eligible message of thread and
// returns how many calls were started. It does not wait for them.
func (r *ReadReconciler) MarkUnreadAsRead(ctx context.Context, thread threads.Thread, viewerIsAdmin bool) int {
	ctx = context.WithoutCancel(ctx)

	started := 0
	for _, msg := range thread.Messages {
		if !Eligible(msg, viewerIsAdmin) || !r.claim(msg.ID) {
			continue
		}
		started++
		r.wg.Add(1)
		go r.markRead(ctx, msg.ID)
	}
	return started
}

func (r *ReadReconciler) claim(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, done := r.dispatched[id]; done {
		return false
	}
	r.dispatched[id] = struct{}{}
	return true
}

func (r *ReadReconciler) markRead(ctx context.Context, id string) {
	defer r.wg.Done()

	ctx, cancel := context.WithTimeout(ctx, markReadTimeout)
	defer cancel()

	if err := r.store.MarkRead(ctx, id); err != nil {
		r.metrics.MarkReadFailure()
		if r.logger != nil {
			r.logger.Debug("mark read failed", slog.String("message_id", id), slog.Any("error", err))
		}
		return
	}
	if r.set != nil {
		r.set.MarkRead(id)
	}
}

// Wait blocks until every dispatched call has finished
func (r *ReadReconciler) Wait() {
	r.wg.Wait()
}
