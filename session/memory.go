package session

import (
	"context"
	"sync"
)

// MemoryStore keeps the session in process memory. Useful for tests, load tests and
// short-lived programs.
type MemoryStore struct {
	mu   sync.RWMutex
	sess Session
}

// NewMemoryStore returns an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreWith returns a [MemoryStore] seeded with sess.
func NewMemoryStoreWith(sess Session) *MemoryStore {
	return &MemoryStore{sess: sess}
}

func (s *MemoryStore) Load(_ context.Context) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess, nil
}

func (s *MemoryStore) Save(_ context.Context, sess Session) error {
	s.mu.Lock()
	s.sess = sess
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.sess = Session{}
	s.mu.Unlock()
	return nil
}
