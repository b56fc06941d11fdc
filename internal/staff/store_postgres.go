package staff

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

func (s *Postgres) Create(ctx context.Context, m *Member) error {
	const query = `
		INSERT INTO staff_members (id, tenant_id, full_name, position, daily_rate, joining_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(m.ID), uuid.UUID(m.Tenant), m.FullName, m.Position, m.DailyRate, m.JoiningDate, m.CreatedAt,
	)
	if err != nil {
		if txcontext.IsUniqueViolation(err) {
			return sentinel.ErrDuplicate
		}
		return fmt.Errorf("insert staff member: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.StaffID) (*Member, error) {
	const query = `
		SELECT id, tenant_id, full_name, position, daily_rate, joining_date, created_at
		FROM staff_members WHERE id = $1
	`
	m, err := scanMember(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find staff member: %w", err)
	}
	return m, nil
}

func (s *Postgres) ListByTenant(ctx context.Context, tenant domain.TenantID) ([]Member, error) {
	const query = `
		SELECT id, tenant_id, full_name, position, daily_rate, joining_date, created_at
		FROM staff_members WHERE tenant_id = $1
		ORDER BY full_name
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(tenant))
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan staff member: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (s *Postgres) UpdateDailyRate(ctx context.Context, id domain.StaffID, rate float64) error {
	const query = `UPDATE staff_members SET daily_rate = $2 WHERE id = $1`
	res, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(id), rate)
	if err != nil {
		return fmt.Errorf("update daily rate: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(row scanner) (*Member, error) {
	var m Member
	var rawID, rawTenant uuid.UUID
	if err := row.Scan(&rawID, &rawTenant, &m.FullName, &m.Position, &m.DailyRate, &m.JoiningDate, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.ID = domain.StaffID(rawID)
	m.Tenant = domain.TenantID(rawTenant)
	return &m, nil
}
