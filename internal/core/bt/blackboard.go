package bt

import (
	"sort"
	"sync"
)

// Blackboard is the shared key/value store handed to every node. The engine
// never reads or resets it.
type Blackboard interface {
	Get(key string) (any, bool)
	Set(key string, value any)
	Delete(key string)
	Keys() []string
	// Snapshot copies the whole store in one consistent read.
	Snapshot() map[string]any
}

// Versioned is implemented by blackboards that count their mutations.
type Versioned interface {
	Version() int64
}

// MapBlackboard is the default Blackboard, safe for use by observers running
// next to the tick goroutine.
type MapBlackboard struct {
	mu      sync.RWMutex
	data    map[string]any
	version int64
}

// NewBlackboard creates a blackboard seeded with a copy of initial.
func NewBlackboard(initial map[string]any) *MapBlackboard {
	bb := &MapBlackboard{data: make(map[string]any, len(initial))}
	for k, v := range initial {
		bb.data[k] = v
	}
	return bb
}

func (bb *MapBlackboard) Set(key string, value any) {
	bb.mu.Lock()
	defer bb.mu.Unlock()

	bb.data[key] = value
	bb.version++
}

func (bb *MapBlackboard) Get(key string) (any, bool) {
	bb.mu.RLock()
	defer bb.mu.RUnlock()

	value, exists := bb.data[key]
	return value, exists
}

func (bb *MapBlackboard) Delete(key string) {
	bb.mu.Lock()
	defer bb.mu.Unlock()

	if _, ok := bb.data[key]; ok {
		delete(bb.data, key)
		bb.version++
	}
}

// Keys returns the keys in sorted order.
func (bb *MapBlackboard) Keys() []string {
	bb.mu.RLock()
	defer bb.mu.RUnlock()

	keys := make([]string, 0, len(bb.data))
	for key := range bb.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Version increases on every mutation.
func (bb *MapBlackboard) Version() int64 {
	bb.mu.RLock()
	defer bb.mu.RUnlock()
	return bb.version
}

// Snapshot returns a shallow copy of the contents.
func (bb *MapBlackboard) Snapshot() map[string]any {
	bb.mu.RLock()
	defer bb.mu.RUnlock()

	cp := make(map[string]any, len(bb.data))
	for k, v := range bb.data {
		cp[k] = v
	}
	return cp
}
