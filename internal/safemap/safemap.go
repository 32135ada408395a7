package safemap

import (
	"sync"
)

type SafeMap[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

func NewSafeMap[K comparable, V any]() *SafeMap[K, V] {
	return &SafeMap[K, V]{
		m: make(map[K]V),
	}
}

func (sm *SafeMap[K, V]) Load(key K) (V, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	val, ok := sm.m[key]
	return val, ok
}

// LoadOrStore returns the value stored under key, creating it with create on
// first use. create runs at most once per key.
func (sm *SafeMap[K, V]) LoadOrStore(key K, create func() V) V {
	if val, ok := sm.Load(key); ok {
		return val
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if val, ok := sm.m[key]; ok {
		return val
	}
	val := create()
	sm.m[key] = val
	return val
}
