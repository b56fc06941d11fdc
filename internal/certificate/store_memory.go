package certificate

import (
	"context"
	"sync"

	"rtscore/pkg/domain"
	"rtscore/pkg/platform/sentinel"
)

type pairKey struct {
	student domain.StudentID
	course  domain.CourseID
}

type InMemory struct {
	mu       sync.RWMutex
	byNumber map[string]*Certificate
	byPair   map[pairKey]*Certificate
}

func NewInMemory() *InMemory {
	return &InMemory{
		byNumber: make(map[string]*Certificate),
		byPair:   make(map[pairKey]*Certificate),
	}
}

func (s *InMemory) Create(ctx context.Context, c *Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey{student: c.Student, course: c.Course}
	if _, exists := s.byPair[key]; exists {
		return sentinel.ErrDuplicate
	}
	if _, exists := s.byNumber[c.Number]; exists {
		return sentinel.ErrDuplicate
	}
	cp := *c
	s.byNumber[c.Number] = &cp
	s.byPair[key] = &cp
	return nil
}

func (s *InMemory) FindByNumber(ctx context.Context, number string) (*Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byNumber[number]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *InMemory) FindByStudentCourse(ctx context.Context, student domain.StudentID, courseID domain.CourseID) (*Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byPair[pairKey{student: student, course: courseID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	return &cp, nil
}
