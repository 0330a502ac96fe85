// Package dedupe removes duplicate observations while merging per-hour
// record batches into one aggregate set.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen dedup keys. SeenAndRecord is the only mutation:
// it atomically checks whether key was seen and records it if not,
// returning true when the key was already present.
type Deduper interface {
	SeenAndRecord(ctx context.Context, key string) bool

	Size() int64
}

// inMemoryDeduper implements Deduper with a plain map. Aggregation needs
// exact membership for the lifetime of one pipeline run, so there is no
// eviction; a fresh deduper is built per run.
type inMemoryDeduper struct {
	mu           sync.Mutex
	seen         map[string]struct{}
	expectedSize int
	size         atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration
// options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		expectedSize: 4096,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{}, d.expectedSize)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		return true
	}
	d.seen[key] = struct{}{}
	d.size.Add(1)
	return false
}

// Size returns the current number of recorded keys.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
