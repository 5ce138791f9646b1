package records

import (
	"context"
	"sync"
)

// feed delivers snapshots to one subscriber on its own goroutine. Pushes
// never block the producer and are delivered in push order.
type feed struct {
	userID string
	fn     SnapshotFunc

	mu      sync.Mutex
	pending []*UserRecord

	wake    chan struct{}
	quit    chan struct{}
	done    chan struct{}
	once    sync.Once
	onClose func(*feed)
}

func newFeed(userID string, fn SnapshotFunc, onClose func(*feed)) *feed {
	return &feed{
		userID:  userID,
		fn:      fn,
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		onClose: onClose,
	}
}

func (f *feed) push(rec *UserRecord) {
	f.mu.Lock()
	f.pending = append(f.pending, rec.clone())
	f.mu.Unlock()

	select {
	case f.wake <- struct{}{}:
	default:
	}
}

func (f *feed) take() []*UserRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	batch := f.pending
	f.pending = nil
	return batch
}

func (f *feed) closed() bool {
	select {
	case <-f.quit:
		return true
	default:
		return false
	}
}

func (f *feed) run(ctx context.Context) {
	defer close(f.done)
	for {
		select {
		case <-ctx.Done():
			f.Unsubscribe()
			return
		case <-f.quit:
			return
		case <-f.wake:
		}

		for _, rec := range f.take() {
			if f.closed() {
				return
			}
			f.fn(ctx, rec)
		}
	}
}

func (f *feed) Unsubscribe() {
	f.once.Do(func() {
		close(f.quit)
		if f.onClose != nil {
			f.onClose(f)
		}
	})
}

// feedSet is the per-user subscriber registry shared by the stores.
type feedSet struct {
	mu    sync.Mutex
	feeds map[string]map[*feed]struct{}
}

func (s *feedSet) add(f *feed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.feeds == nil {
		s.feeds = make(map[string]map[*feed]struct{})
	}
	if s.feeds[f.userID] == nil {
		s.feeds[f.userID] = make(map[*feed]struct{})
	}
	s.feeds[f.userID][f] = struct{}{}
}

func (s *feedSet) remove(f *feed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.feeds[f.userID]; ok {
		delete(set, f)
		if len(set) == 0 {
			delete(s.feeds, f.userID)
		}
	}
}

func (s *feedSet) of(userID string) []*feed {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*feed, 0, len(s.feeds[userID]))
	for f := range s.feeds[userID] {
		out = append(out, f)
	}
	return out
}

func (s *feedSet) users() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.feeds))
	for id := range s.feeds {
		out = append(out, id)
	}
	return out
}
