package course

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func (s *Postgres) CreateCourse(ctx context.Context, c *Course) error {
	const query = `
		INSERT INTO courses (id, tenant_id, name, fee, duration_months, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(c.ID), uuid.UUID(c.Tenant), c.Name, c.Fee, c.DurationMonths, c.CreatedAt,
	)
	if err != nil {
		if txcontext.IsUniqueViolation(err) {
			return sentinel.ErrDuplicate
		}
		return fmt.Errorf("insert course: %w", err)
	}
	return nil
}

func (s *Postgres) FindCourse(ctx context.Context, id domain.CourseID) (*Course, error) {
	const query = `
		SELECT id, tenant_id, name, fee, duration_months, created_at
		FROM courses WHERE id = $1
	`
	var c Course
	var rawID, rawTenant uuid.UUID
	err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(id)).Scan(
		&rawID, &rawTenant, &c.Name, &c.Fee, &c.DurationMonths, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	c.ID = domain.CourseID(rawID)
	c.Tenant = domain.TenantID(rawTenant)
	return &c, nil
}

func (s *Postgres) CreateModule(ctx context.Context, m *Module) error {
	const query = `
		INSERT INTO course_modules (id, course_id, number, name, total_marks, passing_marks, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(m.ID), uuid.UUID(m.Course), m.Number, m.Name, m.TotalMarks, m.PassingMarks, m.Active,
	)
	if err != nil {
		if txcontext.IsUniqueViolation(err) {
			return sentinel.ErrDuplicate
		}
		return fmt.Errorf("insert module: %w", err)
	}
	return nil
}

func (s *Postgres) FindModule(ctx context.Context, id domain.ModuleID) (*Module, error) {
	const query = `
		SELECT id, course_id, number, name, total_marks, passing_marks, active
		FROM course_modules WHERE id = $1
	`
	m, err := scanModule(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find module: %w", err)
	}
	return m, nil
}

func (s *Postgres) ListModules(ctx context.Context, course domain.CourseID) ([]Module, error) {
	const query = `
		SELECT id, course_id, number, name, total_marks, passing_marks, active
		FROM course_modules WHERE course_id = $1
		ORDER BY number
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(course))
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	defer rows.Close()

	var out []Module
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanModule(row scanner) (*Module, error) {
	var m Module
	var rawID, rawCourse uuid.UUID
	if err := row.Scan(&rawID, &rawCourse, &m.Number, &m.Name, &m.TotalMarks, &m.PassingMarks, &m.Active); err != nil {
		return nil, err
	}
	m.ID = domain.ModuleID(rawID)
	m.Course = domain.CourseID(rawCourse)
	return &m, nil
}
