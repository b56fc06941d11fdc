package sequence

import (
	"context"
	"sync"
)

// InMemory is a mutex-guarded counter map for unit tests and single-process
// wiring. Production uses the Postgres store; an in-process counter cannot
// survive restarts or multiple instances.
type InMemory struct {
	mu       sync.Mutex
	counters map[Key]int
}

func NewInMemory() *InMemory {
	return &InMemory{counters: make(map[Key]int)}
}

func (s *InMemory) Increment(ctx context.Context, key Key) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key]++
	return s.counters[key], nil
}

// Peek returns the current value without advancing, for tests.
func (s *InMemory) Peek(key Key) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[key]
}
