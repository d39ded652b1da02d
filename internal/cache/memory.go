// Package cache provides the small in-memory cache used to avoid
// recomputing externalized URLs for frequently activated paths.
package cache

import (
	"time"

	"github.com/maypok86/otter/v2"
	"github.com/maypok86/otter/v2/stats"
)

// Memory is a bounded TTL cache backed by otter.
type Memory[T any] struct {
	cache   *otter.Cache[string, T]
	counter *stats.Counter
}

// NewMemory creates a cache that expires entries ttl after creation and holds
// at most maxSize entries.
func NewMemory[T any](ttl time.Duration, maxSize int) *Memory[T] {
	counter := stats.NewCounter()
	cache := otter.Must(&otter.Options[string, T]{
		MaximumSize:      maxSize,
		StatsRecorder:    counter,
		ExpiryCalculator: otter.ExpiryCreating[string, T](ttl),
	})

	return &Memory[T]{
		cache:   cache,
		counter: counter,
	}
}

// Get retrieves a cached value.
func (m *Memory[T]) Get(key string) (T, bool) {
	entry, ok := m.cache.GetEntry(key)
	if !ok {
		var zero T
		return zero, false
	}

	return entry.Value, true
}

// Set stores a value.
func (m *Memory[T]) Set(key string, value T) {
	m.cache.Set(key, value)
}

// Invalidate removes a cached value.
func (m *Memory[T]) Invalidate(key string) {
	m.cache.Invalidate(key)
}
