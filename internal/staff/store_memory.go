package staff

import (
	"context"
	"sync"

	"rtscore/pkg/domain"
	"rtscore/pkg/platform/sentinel"
)

// Store is consumed by payroll and attendance.
type Store interface {
	Create(ctx context.Context, m *Member) error
	FindByID(ctx context.Context, id domain.StaffID) (*Member, error)
	ListByTenant(ctx context.Context, tenant domain.TenantID) ([]Member, error)
	UpdateDailyRate(ctx context.Context, id domain.StaffID, rate float64) error
}

type InMemory struct {
	mu      sync.RWMutex
	members map[domain.StaffID]*Member
}

func NewInMemory() *InMemory {
	return &InMemory{members: make(map[domain.StaffID]*Member)}
}

func (s *InMemory) Create(ctx context.Context, m *Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.members[m.ID]; exists {
		return sentinel.ErrDuplicate
	}
	cp := *m
	s.members[m.ID] = &cp
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, id domain.StaffID) (*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *InMemory) ListByTenant(ctx context.Context, tenant domain.TenantID) ([]Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Member
	for _, m := range s.members {
		if m.Tenant == tenant {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *InMemory) UpdateDailyRate(ctx context.Context, id domain.StaffID, rate float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	m.DailyRate = rate
	return nil
}
