package enrichment

import (
	"github.com/fraudscope/fraudscope/internal/syncutil"
)

// Cache memoizes entity and counterparty profiles with get-or-insert
// semantics: the first call for an unseen id fills from the Source, all
// later calls return the identical stored value. Concurrent first-calls
// for the same id are serialized through a sharded lock so exactly one
// value is stored. When maxSize > 0, each side evicts its least
// recently used entry once full; an evicted id is re-filled from the
// Source on next sight (the Source is deterministic per id, so the
// value does not diverge).
type Cache struct {
	source Source

	entities       *lruMap[EntityMetadata]
	counterparties *lruMap[CounterpartyMetadata]

	fill syncutil.ShardedMutex // serializes miss-fill per id
}

// NewCache creates a cache over the given source. maxSize bounds each
// side independently; 0 means unbounded.
func NewCache(source Source, maxSize int) *Cache {
	return &Cache{
		source:         source,
		entities:       newLRUMap[EntityMetadata](maxSize),
		counterparties: newLRUMap[CounterpartyMetadata](maxSize),
	}
}

// Enrich returns the cached profile for the entity, filling it from the
// source on first sight.
func (c *Cache) Enrich(entityID string) EntityMetadata {
	if v, ok := c.entities.get(entityID); ok {
		return v
	}

	unlock := c.fill.Lock("e:" + entityID)
	defer unlock()

	// Another goroutine may have filled while we waited.
	if v, ok := c.entities.get(entityID); ok {
		return v
	}
	v := c.source.EntityProfile(entityID)
	c.entities.put(entityID, v)
	return v
}

// EnrichCounterparty returns the cached profile for the counterparty,
// filling it from the source on first sight.
func (c *Cache) EnrichCounterparty(counterpartyID string) CounterpartyMetadata {
	if v, ok := c.counterparties.get(counterpartyID); ok {
		return v
	}

	unlock := c.fill.Lock("c:" + counterpartyID)
	defer unlock()

	if v, ok := c.counterparties.get(counterpartyID); ok {
		return v
	}
	v := c.source.CounterpartyProfile(counterpartyID)
	c.counterparties.put(counterpartyID, v)
	return v
}

// EntityCount returns the number of cached entity profiles.
func (c *Cache) EntityCount() int { return c.entities.len() }

// CounterpartyCount returns the number of cached counterparty profiles.
func (c *Cache) CounterpartyCount() int { return c.counterparties.len() }
