package sequence

import (
	"context"
	"sync"

	"github.com/orderly/backend/internal/domain/shared"
)

type counterKey struct {
	kind Kind
	year int
}

// MemoryAllocator is an in-process Allocator for tests and development.
// Counters are created lazily at 1, mirroring the persisted implementation.
type MemoryAllocator struct {
	mu       sync.Mutex
	counters map[counterKey]int64
}

// NewMemoryAllocator creates an empty in-memory allocator
func NewMemoryAllocator() *MemoryAllocator {
	return &MemoryAllocator{
		counters: make(map[counterKey]int64),
	}
}

// Next returns the next identifier for the kind in the given year
func (a *MemoryAllocator) Next(_ context.Context, kind Kind, year int) (string, error) {
	if !kind.IsValid() {
		return "", shared.NewDomainError("INVALID_KIND", "Unknown sequence kind")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	key := counterKey{kind: kind, year: year}
	a.counters[key]++
	return Identifier(kind, year, a.counters[key]), nil
}

// LastIssued returns the highest number issued for a (kind, year) pair
func (a *MemoryAllocator) LastIssued(kind Kind, year int) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counters[counterKey{kind: kind, year: year}]
}

// Ensure MemoryAllocator implements Allocator
var _ Allocator = (*MemoryAllocator)(nil)
