package watcher

import (
	"context"
	"sync"
)

// Manager keeps at most one watcher per user. Starting a watcher for a user
// that already has one replaces it.
type Manager struct {
	watcher *Watcher

	mu      sync.Mutex
	handles map[string]*Handle
}

func NewManager(w *Watcher) *Manager {
	return &Manager{watcher: w, handles: make(map[string]*Handle)}
}

func (m *Manager) Start(ctx context.Context, userID string, fn NotificationFunc) (*Handle, error) {
	m.mu.Lock()
	prior := m.handles[userID]
	delete(m.handles, userID)
	m.mu.Unlock()

	if prior != nil {
		prior.Cancel()
	}

	h, err := m.watcher.Start(ctx, userID, fn)
	if err != nil {
		return nil, err
	}

	inner := h.onCancel
	h.onCancel = func(h *Handle) {
		if inner != nil {
			inner(h)
		}
		m.release(h)
	}

	m.mu.Lock()
	raced := m.handles[userID]
	m.handles[userID] = h
	m.mu.Unlock()

	if raced != nil {
		raced.Cancel()
	}
	return h, nil
}

// Stop cancels the watcher of userID, if any.
func (m *Manager) Stop(userID string) {
	m.mu.Lock()
	h := m.handles[userID]
	m.mu.Unlock()

	if h != nil {
		h.Cancel()
	}
}

// Active returns the handle of userID, or nil.
func (m *Manager) Active(userID string) *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handles[userID]
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handles)
}

// StopAll cancels every watcher.
func (m *Manager) StopAll() {
	m.mu.Lock()
	hs := make([]*Handle, 0, len(m.handles))
	for _, h := range m.handles {
		hs = append(hs, h)
	}
	m.mu.Unlock()

	for _, h := range hs {
		h.Cancel()
	}
}

func (m *Manager) release(h *Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handles[h.userID] == h {
		delete(m.handles, h.userID)
	}
}
