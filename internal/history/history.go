// Package history maintains per-entity rolling transaction records for
// velocity analysis.
//
// Records are kept for a configurable retention window (default 7 days)
// and evicted eagerly on every append. Access for different entities
// proceeds in parallel; operations on the same entity are serialized
// through a sharded lock pool.
package history

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/fraudscope/fraudscope/internal/syncutil"
)

// DefaultRetention is how long records are kept when no explicit
// retention window is configured.
const DefaultRetention = 7 * 24 * time.Hour

// Record is a single immutable transaction observation.
type Record struct {
	Amount         float64
	Timestamp      time.Time
	CounterpartyID string
}

// entityHistory holds the retained records for one entity, ordered by
// arrival. Timestamps are usually non-decreasing but out-of-order
// arrivals are tolerated: all window queries and eviction filter by
// timestamp instead of assuming sortedness.
type entityHistory struct {
	records []Record
}

// Store is the in-memory per-entity history store.
type Store struct {
	retention time.Duration

	mu       sync.RWMutex
	entities map[string]*entityHistory

	locks syncutil.ShardedMutex // serializes append+evict per entity

	recordCount atomic.Int64
}

// NewStore creates a history store with the given retention window.
// A non-positive retention falls back to DefaultRetention.
func NewStore(retention time.Duration) *Store {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Store{
		retention: retention,
		entities:  make(map[string]*entityHistory),
	}
}

// Retention returns the configured retention window.
func (s *Store) Retention() time.Duration {
	return s.retention
}

// Append adds a record to the entity's history, then evicts every
// record older than now minus the retention window. Eviction covers
// the new record as well: appending a record that is already expired
// relative to now stores nothing. Unknown entities are created on
// first append.
func (s *Store) Append(entityID string, rec Record, now time.Time) {
	unlock := s.locks.Lock(entityID)
	defer unlock()

	h := s.getOrCreate(entityID)
	before := len(h.records)

	cutoff := now.Add(-s.retention)
	all := append(h.records, rec)
	kept := all[:0]
	for _, r := range all {
		if !r.Timestamp.Before(cutoff) {
			kept = append(kept, r)
		}
	}
	h.records = kept

	s.recordCount.Add(int64(len(kept) - before))
}

// Window returns a copy of all records for the entity with timestamp
// in [now-d, now], in stored order. Records exactly at the left
// boundary are included (ts >= now-d); records dated after now are
// excluded. Unknown entities yield an empty result.
func (s *Store) Window(entityID string, now time.Time, d time.Duration) []Record {
	unlock := s.locks.Lock(entityID)
	defer unlock()

	s.mu.RLock()
	h, ok := s.entities[entityID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	cutoff := now.Add(-d)
	out := make([]Record, 0, len(h.records))
	for _, r := range h.records {
		if !r.Timestamp.Before(cutoff) && !r.Timestamp.After(now) {
			out = append(out, r)
		}
	}
	return out
}

// EntityCount returns the number of entities with history.
func (s *Store) EntityCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}

// RecordCount returns the total number of retained records across all
// entities. The count trails in-flight appends, which is acceptable
// for stats snapshots.
func (s *Store) RecordCount() int64 {
	return s.recordCount.Load()
}

// getOrCreate returns the history for entityID, creating it if needed.
// Caller must hold the entity's shard lock.
func (s *Store) getOrCreate(entityID string) *entityHistory {
	s.mu.RLock()
	h, ok := s.entities[entityID]
	s.mu.RUnlock()
	if ok {
		return h
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok = s.entities[entityID]; ok {
		return h
	}
	h = &entityHistory{}
	s.entities[entityID] = h
	return h
}
