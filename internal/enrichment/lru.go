package enrichment

import (
	"container/list"
	"sync"
)

// lruMap is a mutex-guarded map with least-recently-used eviction.
// Values are never mutated in place: put stores a whole value, get
// returns a copy.
type lruMap[V any] struct {
	maxSize int // 0 = unbounded

	mu    sync.Mutex
	items map[string]*list.Element
	order *list.List // front = most recently used
}

type lruEntry[V any] struct {
	key   string
	value V
}

func newLRUMap[V any](maxSize int) *lruMap[V] {
	return &lruMap[V]{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

func (m *lruMap[V]) get(key string) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	m.order.MoveToFront(el)
	return el.Value.(*lruEntry[V]).value, true
}

func (m *lruMap[V]) put(key string, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[key]; ok {
		// Keep the first stored value; enrichment never refreshes.
		m.order.MoveToFront(el)
		return
	}

	el := m.order.PushFront(&lruEntry[V]{key: key, value: value})
	m.items[key] = el

	if m.maxSize > 0 && m.order.Len() > m.maxSize {
		oldest := m.order.Back()
		if oldest != nil {
			m.order.Remove(oldest)
			delete(m.items, oldest.Value.(*lruEntry[V]).key)
		}
	}
}

func (m *lruMap[V]) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}
