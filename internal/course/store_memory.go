package course

import (
	"context"
	"sort"
	"sync"

	"rtscore/pkg/domain"
	"rtscore/pkg/platform/sentinel"
)

// Store is the catalog read/write surface consumed by the ledger, exam and
// eligibility services.
type Store interface {
	CreateCourse(ctx context.Context, c *Course) error
	FindCourse(ctx context.Context, id domain.CourseID) (*Course, error)
	CreateModule(ctx context.Context, m *Module) error
	FindModule(ctx context.Context, id domain.ModuleID) (*Module, error)
	ListModules(ctx context.Context, course domain.CourseID) ([]Module, error)
}

type InMemory struct {
	mu      sync.RWMutex
	courses map[domain.CourseID]*Course
	modules map[domain.ModuleID]*Module
}

func NewInMemory() *InMemory {
	return &InMemory{
		courses: make(map[domain.CourseID]*Course),
		modules: make(map[domain.ModuleID]*Module),
	}
}

func (s *InMemory) CreateCourse(ctx context.Context, c *Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.courses[c.ID]; exists {
		return sentinel.ErrDuplicate
	}
	cp := *c
	s.courses[c.ID] = &cp
	return nil
}

func (s *InMemory) FindCourse(ctx context.Context, id domain.CourseID) (*Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *InMemory) CreateModule(ctx context.Context, m *Module) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.modules[m.ID]; exists {
		return sentinel.ErrDuplicate
	}
	if _, ok := s.courses[m.Course]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *m
	s.modules[m.ID] = &cp
	return nil
}

func (s *InMemory) FindModule(ctx context.Context, id domain.ModuleID) (*Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.modules[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *InMemory) ListModules(ctx context.Context, course domain.CourseID) ([]Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Module
	for _, m := range s.modules {
		if m.Course == course {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}
