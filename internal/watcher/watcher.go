// Package watcher turns record snapshots into motion notifications. A
// watcher fires once per snapshot whose notify flag is raised, clears the
// flag and hands the image to the caller.
package watcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/intrusionbot/internal/common"
	"github.com/dmitrijs2005/intrusionbot/internal/fetch"
	"github.com/dmitrijs2005/intrusionbot/internal/logging"
	"github.com/dmitrijs2005/intrusionbot/internal/metrics"
	"github.com/dmitrijs2005/intrusionbot/internal/records"
)

// Notification describes one detected movement.
type Notification struct {
	UserID    string
	ImageURL  string
	Timestamp string
	// Image is nil when the download failed or no fetcher is configured.
	Image *fetch.Image
}

type NotificationFunc func(ctx context.Context, n Notification)

// Resolver turns a stored image reference into a downloadable URL.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Image, error)
}

type Options struct {
	Resolver     Resolver
	Fetcher      Fetcher
	FetchTimeout time.Duration
	ResetTimeout time.Duration
}

type Watcher struct {
	store        records.Store
	resolver     Resolver
	fetcher      Fetcher
	logger       logging.Logger
	metrics      *metrics.Metrics
	fetchTimeout time.Duration
	resetTimeout time.Duration
}

func New(store records.Store, l logging.Logger, m *metrics.Metrics, opts Options) *Watcher {
	w := &Watcher{
		store:        store,
		resolver:     opts.Resolver,
		fetcher:      opts.Fetcher,
		logger:       l.With("module", "watcher"),
		metrics:      m,
		fetchTimeout: opts.FetchTimeout,
		resetTimeout: opts.ResetTimeout,
	}
	if w.metrics == nil {
		w.metrics = metrics.New(nil)
	}
	if w.fetchTimeout <= 0 {
		w.fetchTimeout = 10 * time.Second
	}
	if w.resetTimeout <= 0 {
		w.resetTimeout = 5 * time.Second
	}
	return w
}

// Handle controls a running watcher.
type Handle struct {
	userID    string
	cancelled atomic.Bool
	once      sync.Once
	cancel    context.CancelFunc
	sub       records.Subscription
	onCancel  func(*Handle)
}

func (h *Handle) UserID() string { return h.userID }

// Cancelled reports whether Cancel has been called.
func (h *Handle) Cancelled() bool { return h.cancelled.Load() }

// Cancel stops delivery and detaches the store listener. A callback already
// running may still complete. Safe to call more than once.
func (h *Handle) Cancel() {
	h.once.Do(func() {
		h.cancelled.Store(true)
		h.cancel()
		if h.sub != nil {
			h.sub.Unsubscribe()
		}
		if h.onCancel != nil {
			h.onCancel(h)
		}
	})
}

// Start subscribes to the record of userID and calls fn once for every
// snapshot with notify raised.
func (w *Watcher) Start(ctx context.Context, userID string, fn NotificationFunc) (*Handle, error) {
	if userID == "" {
		return nil, common.ErrInvalidUserID
	}

	hctx, cancel := context.WithCancel(ctx)
	h := &Handle{userID: userID, cancel: cancel}

	sub, err := w.store.Subscribe(hctx, userID, func(sctx context.Context, rec *records.UserRecord) {
		w.onSnapshot(sctx, h, rec, fn)
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %w", common.ErrSubscriptionUnavailable, err)
	}
	h.sub = sub

	w.metrics.ActiveWatchers.Inc()
	h.onCancel = func(*Handle) { w.metrics.ActiveWatchers.Dec() }

	w.logger.Info(ctx, "watcher started", "user_id", userID)
	return h, nil
}

func (w *Watcher) onSnapshot(ctx context.Context, h *Handle, rec *records.UserRecord, fn NotificationFunc) {
	if h.Cancelled() || rec == nil || !rec.Notify {
		return
	}

	ref, ts := rec.RecentImageURL, rec.LastImageTimestamp

	w.reset(ctx, h.userID)

	go w.deliver(ctx, h, ref, ts, fn)
}

func (w *Watcher) reset(ctx context.Context, userID string) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.resetTimeout)
	defer cancel()

	if err := w.store.SetNotify(rctx, userID, false); err != nil {
		w.metrics.ResetFailures.Inc()
		w.logger.Error(ctx, "notify reset failed", "user_id", userID,
			"error", fmt.Errorf("%w: %w", common.ErrWriteFailure, err))
	}
}

func (w *Watcher) deliver(ctx context.Context, h *Handle, ref, ts string, fn NotificationFunc) {
	n := Notification{UserID: h.userID, ImageURL: ref, Timestamp: ts}

	if ref != "" {
		n.ImageURL, n.Image = w.download(ctx, h.userID, ref)
	}

	if h.Cancelled() {
		return
	}

	fn(ctx, n)
	w.metrics.NotificationsDelivered.Inc()
}

// download resolves and fetches ref. On failure the reference itself is
// returned with no image.
func (w *Watcher) download(ctx context.Context, userID, ref string) (string, *fetch.Image) {
	url := ref
	if w.resolver != nil {
		u, err := w.resolver.Resolve(ctx, ref)
		if err != nil {
			w.fetchFailed(ctx, userID, ref, err)
			return ref, nil
		}
		url = u
	}

	if w.fetcher == nil {
		return url, nil
	}

	fctx, cancel := context.WithTimeout(ctx, w.fetchTimeout)
	defer cancel()

	img, err := w.fetcher.Fetch(fctx, url)
	if err != nil {
		w.fetchFailed(ctx, userID, ref, err)
		return url, nil
	}
	return url, img
}

func (w *Watcher) fetchFailed(ctx context.Context, userID, ref string, err error) {
	w.metrics.FetchFailures.Inc()
	w.logger.Warn(ctx, "image fetch failed", "user_id", userID, "ref", ref,
		"error", fmt.Errorf("%w: %w", common.ErrFetchFailure, err))
}
