package enrollment

import (
	"context"
	"sync"
	"time"

	"rtscore/pkg/domain"
	"rtscore/pkg/platform/sentinel"
)

type enrollKey struct {
	student domain.StudentID
	course  domain.CourseID
}

type InMemory struct {
	mu          sync.RWMutex
	students    map[domain.StudentID]*Student
	byEnrollID  map[string]domain.StudentID
	enrollments map[enrollKey]*CourseEnrollment
	enrollOrder []enrollKey
}

func NewInMemory() *InMemory {
	return &InMemory{
		students:    make(map[domain.StudentID]*Student),
		byEnrollID:  make(map[string]domain.StudentID),
		enrollments: make(map[enrollKey]*CourseEnrollment),
	}
}

func (s *InMemory) CreateStudent(ctx context.Context, st *Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.students[st.ID]; exists {
		return sentinel.ErrDuplicate
	}
	if _, exists := s.byEnrollID[st.EnrollmentID]; exists {
		return sentinel.ErrDuplicate
	}
	cp := *st
	s.students[st.ID] = &cp
	s.byEnrollID[st.EnrollmentID] = st.ID
	return nil
}

func (s *InMemory) FindStudent(ctx context.Context, id domain.StudentID) (*Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.students[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (s *InMemory) FindByEnrollmentID(ctx context.Context, enrollmentID string) (*Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEnrollID[enrollmentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.students[id]
	return &cp, nil
}

func (s *InMemory) SoftDeleteStudent(ctx context.Context, id domain.StudentID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	t := at
	st.DeletedAt = &t
	return nil
}

func (s *InMemory) CreateEnrollment(ctx context.Context, e *CourseEnrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := enrollKey{student: e.Student, course: e.Course}
	if _, exists := s.enrollments[key]; exists {
		return sentinel.ErrDuplicate
	}
	cp := *e
	s.enrollments[key] = &cp
	s.enrollOrder = append(s.enrollOrder, key)
	return nil
}

func (s *InMemory) ListEnrollments(ctx context.Context, student domain.StudentID) ([]CourseEnrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []CourseEnrollment
	for _, key := range s.enrollOrder {
		if key.student == student {
			out = append(out, *s.enrollments[key])
		}
	}
	return out, nil
}
