package verdoc

import (
	"context"
	"fmt"
	"sync"
)

// memoryStore keeps snapshots in a map. Like the file and bolt adapters,
// the first bytes stored under a name are kept.
type memoryStore struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
}

// NewInMemoryStore returns a Persist holding snapshots in memory, usually
// for testing.
func NewInMemoryStore() Persist {
	return &memoryStore{snapshots: make(map[string][]byte)}
}

func (s *memoryStore) Store(ctx context.Context, link string, encoded []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.snapshots[link]; !ok {
		s.snapshots[link] = append([]byte(nil), encoded...)
	}
	return nil
}

func (s *memoryStore) Load(ctx context.Context, link string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	encoded, ok := s.snapshots[link]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("snapshot %s: %w", link, ErrNotFound)
	}
	return encoded, nil
}
