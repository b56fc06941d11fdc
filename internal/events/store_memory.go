package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the outbox persistence surface. Append is called inside the
// emitter's transaction; the remaining methods belong to the worker.
type Store interface {
	Append(ctx context.Context, e *Event) error
	ListUnpublished(ctx context.Context, limit int) ([]Event, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

type InMemory struct {
	mu     sync.Mutex
	events []Event
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(ctx context.Context, e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *e)
	return nil
}

func (s *InMemory) ListUnpublished(ctx context.Context, limit int) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.PublishedAt == nil {
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *InMemory) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	for i := range s.events {
		if _, ok := set[s.events[i].ID]; ok && s.events[i].PublishedAt == nil {
			t := at
			s.events[i].PublishedAt = &t
		}
	}
	return nil
}

// All returns every appended event, for tests.
func (s *InMemory) All() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}
