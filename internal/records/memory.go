package records

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/intrusionbot/internal/common"
	"github.com/dmitrijs2005/intrusionbot/internal/history"
)

// MemoryStore keeps records in process. It backs the "memory" store kind
// and the tests.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*UserRecord
	subs    feedSet
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*UserRecord)}
}

func (s *MemoryStore) Subscribe(ctx context.Context, userID string, fn SnapshotFunc) (Subscription, error) {
	f := newFeed(userID, fn, s.subs.remove)

	// registering and taking the initial snapshot under one lock keeps the
	// initial snapshot ahead of any later change
	s.mu.Lock()
	s.subs.add(f)
	f.push(s.records[userID])
	s.mu.Unlock()

	go f.run(ctx)
	return f, nil
}

func (s *MemoryStore) Get(_ context.Context, userID string) (*UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return rec.clone(), nil
}

func (s *MemoryStore) SetNotify(_ context.Context, userID string, notify bool) error {
	s.update(userID, func(rec *UserRecord) { rec.Notify = notify })
	return nil
}

func (s *MemoryStore) AppendImage(_ context.Context, userID, ref, timestamp string) error {
	s.update(userID, func(rec *UserRecord) {
		rec.ImageHistory = history.Append(rec.ImageHistory, ref)
		rec.RecentImageURL = ref
		rec.LastImageTimestamp = timestamp
		rec.Notify = true
	})
	return nil
}

// Put replaces the whole record and notifies subscribers.
func (s *MemoryStore) Put(rec UserRecord) {
	s.update(rec.UserID, func(r *UserRecord) { *r = rec })
}

// Delete removes the record; subscribers receive an absent snapshot.
func (s *MemoryStore) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
	for _, f := range s.subs.of(userID) {
		f.push(nil)
	}
}

func (s *MemoryStore) update(userID string, fn func(*UserRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		rec = &UserRecord{UserID: userID}
		s.records[userID] = rec
	}
	fn(rec)
	rec.UserID = userID
	for _, f := range s.subs.of(userID) {
		f.push(rec)
	}
}
