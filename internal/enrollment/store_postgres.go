package enrollment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rtscore/pkg/domain"
	"rtscore/pkg/platform/sentinel"
	txcontext "rtscore/pkg/platform/tx"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) CreateStudent(ctx context.Context, st *Student) error {
	const query = `
		INSERT INTO students (id, tenant_id, enrollment_id, full_name, guardian_name, phone, batch, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(st.ID), uuid.UUID(st.Tenant), st.EnrollmentID,
		st.FullName, st.GuardianName, st.Phone, st.Batch, st.RegisteredAt,
	)
	if err != nil {
		if txcontext.IsUniqueViolation(err) {
			return sentinel.ErrDuplicate
		}
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

func (s *Postgres) FindStudent(ctx context.Context, id domain.StudentID) (*Student, error) {
	const query = `
		SELECT id, tenant_id, enrollment_id, full_name, guardian_name, phone, batch, registered_at, deleted_at
		FROM students WHERE id = $1
	`
	return s.queryStudent(ctx, query, uuid.UUID(id))
}

func (s *Postgres) FindByEnrollmentID(ctx context.Context, enrollmentID string) (*Student, error) {
	const query = `
		SELECT id, tenant_id, enrollment_id, full_name, guardian_name, phone, batch, registered_at, deleted_at
		FROM students WHERE enrollment_id = $1
	`
	return s.queryStudent(ctx, query, enrollmentID)
}

func (s *Postgres) queryStudent(ctx context.Context, query string, arg any) (*Student, error) {
	var st Student
	var rawID, rawTenant uuid.UUID
	var deletedAt sql.NullTime
	err := s.execer(ctx).QueryRowContext(ctx, query, arg).Scan(
		&rawID, &rawTenant, &st.EnrollmentID, &st.FullName, &st.GuardianName,
		&st.Phone, &st.Batch, &st.RegisteredAt, &deletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	st.ID = domain.StudentID(rawID)
	st.Tenant = domain.TenantID(rawTenant)
	if deletedAt.Valid {
		st.DeletedAt = &deletedAt.Time
	}
	return &st, nil
}

func (s *Postgres) SoftDeleteStudent(ctx context.Context, id domain.StudentID, at time.Time) error {
	const query = `UPDATE students SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`
	res, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(id), at)
	if err != nil {
		return fmt.Errorf("soft delete student: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) CreateEnrollment(ctx context.Context, e *CourseEnrollment) error {
	const query = `
		INSERT INTO course_enrollments (student_id, course_id, enrolled_at)
		VALUES ($1, $2, $3)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(e.Student), uuid.UUID(e.Course), e.EnrolledAt,
	)
	if err != nil {
		if txcontext.IsUniqueViolation(err) {
			return sentinel.ErrDuplicate
		}
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

func (s *Postgres) ListEnrollments(ctx context.Context, student domain.StudentID) ([]CourseEnrollment, error) {
	const query = `
		SELECT student_id, course_id, enrolled_at
		FROM course_enrollments WHERE student_id = $1
		ORDER BY enrolled_at
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(student))
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	defer rows.Close()

	var out []CourseEnrollment
	for rows.Next() {
		var e CourseEnrollment
		var rawStudent, rawCourse uuid.UUID
		if err := rows.Scan(&rawStudent, &rawCourse, &e.EnrolledAt); err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		e.Student = domain.StudentID(rawStudent)
		e.Course = domain.CourseID(rawCourse)
		out = append(out, e)
	}
	return out, rows.Err()
}
