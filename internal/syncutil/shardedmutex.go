// Package syncutil provides synchronization primitives shared across packages.
package syncutil

import (
	"hash/fnv"
	"sync"
)

// numShards is a power of two so the modulo compiles to a mask.
const numShards = 256

// ShardedMutex is a fixed pool of mutexes keyed by string. Memory stays
// bounded no matter how many distinct keys are locked; keys that hash
// to the same shard occasionally contend with each other.
type ShardedMutex struct {
	shards [numShards]sync.Mutex
}

// Lock acquires the shard for key and returns its unlock function:
//
//	defer locks.Lock(entityID)()
func (s *ShardedMutex) Lock(key string) func() {
	mu := &s.shards[shardIndex(key)]
	mu.Lock()
	return mu.Unlock
}

func shardIndex(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % numShards
}
