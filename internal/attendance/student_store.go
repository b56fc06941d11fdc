package attendance

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"rtscore/pkg/domain"
	txcontext "rtscore/pkg/platform/tx"
)

type studentDayKey struct {
	student domain.StudentID
	course  domain.CourseID
	date    time.Time
}

// StudentInMemory is the in-memory student register.
type StudentInMemory struct {
	mu      sync.RWMutex
	records map[studentDayKey]*StudentRecord
}

func NewStudentInMemory() *StudentInMemory {
	return &StudentInMemory{records: make(map[studentDayKey]*StudentRecord)}
}

func (s *StudentInMemory) UpsertStudentDay(ctx context.Context, r *StudentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.records[studentDayKey{student: r.Student, course: r.Course, date: r.Date}] = &cp
	return nil
}

func (s *StudentInMemory) CountStudentDays(ctx context.Context, student domain.StudentID, c domain.CourseID) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var present, total int
	for key, r := range s.records {
		if key.student == student && key.course == c {
			total++
			if r.Present {
				present++
			}
		}
	}
	return present, total, nil
}

// StudentPostgres is the Postgres student register.
type StudentPostgres struct {
	db *sql.DB
}

func NewStudentPostgres(db *sql.DB) *StudentPostgres {
	return &StudentPostgres{db: db}
}

func (s *StudentPostgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *StudentPostgres) UpsertStudentDay(ctx context.Context, r *StudentRecord) error {
	const query = `
		INSERT INTO student_attendance (student_id, course_id, tenant_id, date, present, marked_by, marked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (student_id, course_id, date)
		DO UPDATE SET present = EXCLUDED.present, marked_by = EXCLUDED.marked_by, marked_at = EXCLUDED.marked_at
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(r.Student), uuid.UUID(r.Course), uuid.UUID(r.Tenant),
		r.Date, r.Present, uuid.UUID(r.MarkedBy), r.MarkedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert student attendance: %w", err)
	}
	return nil
}

func (s *StudentPostgres) CountStudentDays(ctx context.Context, student domain.StudentID, c domain.CourseID) (int, int, error) {
	const query = `
		SELECT COUNT(*) FILTER (WHERE present), COUNT(*)
		FROM student_attendance
		WHERE student_id = $1 AND course_id = $2
	`
	var present, total int
	err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(student), uuid.UUID(c)).Scan(&present, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("count student attendance: %w", err)
	}
	return present, total, nil
}
