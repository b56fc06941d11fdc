package exam

import (
	"context"
	"sync"

	"rtscore/pkg/domain"
	"rtscore/pkg/platform/sentinel"
)

type InMemory struct {
	mu        sync.RWMutex
	attempts  map[domain.AttemptID]*Attempt
	questions map[domain.ModuleID][]Question
}

func NewInMemory() *InMemory {
	return &InMemory{
		attempts:  make(map[domain.AttemptID]*Attempt),
		questions: make(map[domain.ModuleID][]Question),
	}
}

func (s *InMemory) CreateAttempt(ctx context.Context, a *Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.attempts[a.ID]; exists {
		return sentinel.ErrDuplicate
	}
	for _, existing := range s.attempts {
		if existing.Student == a.Student && existing.Module == a.Module && activeState(existing.State) {
			return sentinel.ErrDuplicate
		}
	}
	cp := *a
	s.attempts[a.ID] = &cp
	return nil
}

func activeState(st State) bool {
	return st == StateScheduled || st == StateTaken || st == StateScoredUnverified
}

func (s *InMemory) FindAttempt(ctx context.Context, id domain.AttemptID) (*Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attempts[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *InMemory) FindActiveAttempt(ctx context.Context, student domain.StudentID, module domain.ModuleID) (*Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.attempts {
		if a.Student == student && a.Module == module && activeState(a.State) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ListByStudent(ctx context.Context, student domain.StudentID) ([]Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Attempt
	for _, a := range s.attempts {
		if a.Student == student {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *InMemory) CreateQuestion(ctx context.Context, q *Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.questions[q.Module] {
		if existing.Number == q.Number {
			return sentinel.ErrDuplicate
		}
	}
	s.questions[q.Module] = append(s.questions[q.Module], *q)
	return nil
}

func (s *InMemory) ListQuestions(ctx context.Context, module domain.ModuleID) ([]Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Question, len(s.questions[module]))
	copy(out, s.questions[module])
	return out, nil
}

// Update is compare-and-set on the expected state.
func (s *InMemory) Update(ctx context.Context, a *Attempt, expected State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.attempts[a.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.State != expected {
		return sentinel.ErrInvalidState
	}
	cp := *a
	s.attempts[a.ID] = &cp
	return nil
}
