package attendance

import (
	"context"
	"sync"
	"time"

	"rtscore/pkg/domain"
)

type dayKey struct {
	staff domain.StaffID
	date  time.Time
}

type InMemory struct {
	mu      sync.RWMutex
	records map[dayKey]*Record
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[dayKey]*Record)}
}

func (s *InMemory) Upsert(ctx context.Context, r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.records[dayKey{staff: r.Staff, date: r.Date}] = &cp
	return nil
}

func (s *InMemory) ListMonth(ctx context.Context, staffID domain.StaffID, month, year int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for key, r := range s.records {
		if key.staff == staffID && r.Date.Year() == year && int(r.Date.Month()) == month {
			out = append(out, *r)
		}
	}
	return out, nil
}
