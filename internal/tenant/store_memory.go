package tenant

import (
	"context"
	"strings"
	"sync"

	"rtscore/pkg/domain"
	"rtscore/pkg/platform/sentinel"
)

// InMemory keeps institutions in maps for tests and local wiring.
type InMemory struct {
	mu       sync.RWMutex
	byID     map[domain.TenantID]*Institution
	names    map[string]struct{}
	settings map[domain.TenantID]Settings
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:     make(map[domain.TenantID]*Institution),
		names:    make(map[string]struct{}),
		settings: make(map[domain.TenantID]Settings),
	}
}

func (s *InMemory) Create(ctx context.Context, inst *Institution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(inst.Name)
	if _, exists := s.names[key]; exists {
		return sentinel.ErrDuplicate
	}
	cp := *inst
	s.byID[inst.ID] = &cp
	s.names[key] = struct{}{}
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, id domain.TenantID) (*Institution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *inst
	return &cp, nil
}

func (s *InMemory) SaveSettings(ctx context.Context, id domain.TenantID, settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return sentinel.ErrNotFound
	}
	s.settings[id] = settings
	return nil
}

func (s *InMemory) FindSettings(ctx context.Context, id domain.TenantID) (Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settings, ok := s.settings[id]
	if !ok {
		return Settings{}, sentinel.ErrNotFound
	}
	return settings, nil
}
