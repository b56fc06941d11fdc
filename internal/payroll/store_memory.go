package payroll

import (
	"context"
	"sync"

	"rtscore/pkg/domain"
	"rtscore/pkg/platform/sentinel"
)

type periodKey struct {
	staff domain.StaffID
	month int
	year  int
}

type InMemory struct {
	mu      sync.RWMutex
	periods map[periodKey]*Period
}

func NewInMemory() *InMemory {
	return &InMemory{periods: make(map[periodKey]*Period)}
}

func (s *InMemory) Save(ctx context.Context, p *Period) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := periodKey{staff: p.Staff, month: p.Month, year: p.Year}
	if existing, ok := s.periods[key]; ok && existing.Finalized {
		return sentinel.ErrInvalidState
	}
	cp := *p
	s.periods[key] = &cp
	return nil
}

func (s *InMemory) Find(ctx context.Context, staffID domain.StaffID, month, year int) (*Period, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.periods[periodKey{staff: staffID, month: month, year: year}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemory) Finalize(ctx context.Context, staffID domain.StaffID, month, year int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.periods[periodKey{staff: staffID, month: month, year: year}]
	if !ok {
		return sentinel.ErrNotFound
	}
	p.Finalized = true
	return nil
}
