package cache

import (
	"sync"
	"time"
)

type entry struct {
	key       string
	value     any
	expiresAt time.Time
}

// shard owns a slice of the key space behind its own RWMutex so that
// cross-key traffic is not serialized more than necessary.
type shard struct {
	mu      sync.RWMutex
	entries map[string]*entry
	clock   Clock
}

func newShard(clock Clock) *shard {
	return &shard{
		entries: make(map[string]*entry),
		clock:   clock,
	}
}

func (s *shard) size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *shard) set(key string, value any, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = &entry{
		key:       key,
		value:     value,
		expiresAt: s.clock.Now().Add(ttl),
	}
}

// get returns the value for key if it is present and unexpired. A read that
// finds an expired entry removes it, so size and iteration reflect live state.
func (s *shard) get(key string) (any, bool) {
	s.mu.RLock()
	item, ok := s.entries[key]
	if !ok {
		s.mu.RUnlock()
		return nil, false
	}
	if s.clock.Now().Before(item.expiresAt) {
		value := item.value
		s.mu.RUnlock()
		return value, true
	}
	s.mu.RUnlock()

	// Lazy eviction. Re-check under the write lock: another goroutine may
	// have overwritten the entry with a fresh expiration in the meantime.
	s.mu.Lock()
	if current, ok := s.entries[key]; ok && !s.clock.Now().Before(current.expiresAt) {
		delete(s.entries, key)
	}
	s.mu.Unlock()
	return nil, false
}

func (s *shard) delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// evictExpired removes every expired entry in the shard. Safe to run
// concurrently with foreground deletes; deleting an absent key is a no-op.
func (s *shard) evictExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted int
	now := s.clock.Now()
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
			evicted++
		}
	}
	return evicted
}
