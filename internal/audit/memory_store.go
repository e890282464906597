package audit

import (
	"context"
	"sync"
)

// DefaultMemoryCapacity bounds the in-memory event ring.
const DefaultMemoryCapacity = 10000

// MemoryStore is a bounded in-memory implementation of Store for
// demo/test use. Once capacity is reached the oldest events are
// overwritten.
type MemoryStore struct {
	mu     sync.RWMutex
	events []*Event
	next   int
	full   bool
}

// NewMemoryStore creates an in-memory event store with the default capacity.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithCapacity(DefaultMemoryCapacity)
}

// NewMemoryStoreWithCapacity creates an in-memory event store holding
// at most capacity events.
func NewMemoryStoreWithCapacity(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{events: make([]*Event, capacity)}
}

func (s *MemoryStore) Record(ctx context.Context, event *Event) error {
	e := *event
	e.Factors = append([]string(nil), event.Factors...)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[s.next] = &e
	s.next++
	if s.next == len(s.events) {
		s.next = 0
		s.full = true
	}
	return nil
}

func (s *MemoryStore) ListRecent(ctx context.Context, limit int) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	size := s.next
	if s.full {
		size = len(s.events)
	}
	if limit <= 0 || limit > size {
		limit = size
	}
	if limit == 0 {
		return nil, nil
	}

	// Walk backwards from the most recent slot.
	result := make([]*Event, 0, limit)
	idx := s.next - 1
	for len(result) < limit {
		if idx < 0 {
			idx = len(s.events) - 1
		}
		e := *s.events[idx]
		e.Factors = append([]string(nil), e.Factors...)
		result = append(result, &e)
		idx--
	}
	return result, nil
}

// Len reports the number of stored events.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.full {
		return len(s.events)
	}
	return s.next
}
