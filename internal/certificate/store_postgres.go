package certificate

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
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Create(ctx context.Context, c *Certificate) error {
	const query = `
		INSERT INTO certificates (id, tenant_id, student_id, course_id, number, issued_by, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(c.ID), uuid.UUID(c.Tenant), uuid.UUID(c.Student), uuid.UUID(c.Course),
		c.Number, uuid.UUID(c.IssuedBy), c.IssuedAt,
	)
	if err != nil {
		if txcontext.IsUniqueViolation(err) {
			return sentinel.ErrDuplicate
		}
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

func (s *Postgres) FindByNumber(ctx context.Context, number string) (*Certificate, error) {
	const query = `
		SELECT id, tenant_id, student_id, course_id, number, issued_by, issued_at
		FROM certificates WHERE number = $1
	`
	return s.queryOne(ctx, query, number)
}

func (s *Postgres) FindByStudentCourse(ctx context.Context, student domain.StudentID, courseID domain.CourseID) (*Certificate, error) {
	const query = `
		SELECT id, tenant_id, student_id, course_id, number, issued_by, issued_at
		FROM certificates WHERE student_id = $1 AND course_id = $2
	`
	return s.queryOne(ctx, query, uuid.UUID(student), uuid.UUID(courseID))
}

func (s *Postgres) queryOne(ctx context.Context, query string, args ...any) (*Certificate, error) {
	var c Certificate
	var rawID, rawTenant, rawStudent, rawCourse, rawBy uuid.UUID
	err := s.execer(ctx).QueryRowContext(ctx, query, args...).Scan(
		&rawID, &rawTenant, &rawStudent, &rawCourse, &c.Number, &rawBy, &c.IssuedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find certificate: %w", err)
	}
	c.ID = domain.CertificateID(rawID)
	c.Tenant = domain.TenantID(rawTenant)
	c.Student = domain.StudentID(rawStudent)
	c.Course = domain.CourseID(rawCourse)
	c.IssuedBy = domain.UserID(rawBy)
	return &c, nil
}
