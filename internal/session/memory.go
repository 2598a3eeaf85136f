package session

import (
	"context"
	"sync"
	"time"

	"github.com/oculab/growthtrack/internal/domain"
)

// MemoryStore implements Store using in-memory storage.
// Suitable for single-node deployments; sessions do not survive restarts
// and are not shared across instances.
type MemoryStore struct {
	mu      sync.RWMutex
	items   map[string]*memoryItem
	stopCh  chan struct{}
	stopped bool
}

// memoryItem is a stored session with its expiry.
type memoryItem struct {
	sess      *Session
	expiresAt time.Time
}

// isExpired checks if the item has expired.
func (i *memoryItem) isExpired() bool {
	return time.Now().After(i.expiresAt)
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		items:  make(map[string]*memoryItem),
		stopCh: make(chan struct{}),
	}

	// Start cleanup goroutine.
	go s.cleanupLoop()

	return s
}

// cleanupLoop periodically removes expired sessions.
func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes expired sessions.
func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, item := range s.items {
		if item.isExpired() {
			delete(s.items, token)
		}
	}
}

// Put stores a session under its token.
func (s *MemoryStore) Put(ctx context.Context, sess *Session, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[sess.Token] = &memoryItem{
		sess:      sess,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Get retrieves a session by token.
func (s *MemoryStore) Get(ctx context.Context, token string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	item, ok := s.items[token]
	s.mu.RUnlock()

	if !ok || item.isExpired() {
		return nil, domain.ErrSessionNotFound
	}
	return item.sess, nil
}

// Delete removes a session.
func (s *MemoryStore) Delete(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, token)
	return nil
}

// Close stops the cleanup goroutine.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.stopped {
		s.stopped = true
		close(s.stopCh)
	}
	return nil
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
