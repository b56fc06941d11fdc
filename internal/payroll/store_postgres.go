package payroll

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

// Save upserts on (staff_id, month, year) but refuses to touch a finalized
// row; zero rows affected with an existing row means finalized.
func (s *Postgres) Save(ctx context.Context, p *Period) error {
	const query = `
		INSERT INTO payroll_periods
			(staff_id, tenant_id, month, year, present_days, half_days, absent_days, leave_days,
			 daily_rate, gross, finalized, generated_by, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE, $11, $12)
		ON CONFLICT (staff_id, month, year) DO UPDATE SET
			present_days = EXCLUDED.present_days,
			half_days = EXCLUDED.half_days,
			absent_days = EXCLUDED.absent_days,
			leave_days = EXCLUDED.leave_days,
			daily_rate = EXCLUDED.daily_rate,
			gross = EXCLUDED.gross,
			generated_by = EXCLUDED.generated_by,
			generated_at = EXCLUDED.generated_at
		WHERE payroll_periods.finalized = FALSE
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(p.Staff), uuid.UUID(p.Tenant), p.Month, p.Year,
		p.PresentDays, p.HalfDays, p.AbsentDays, p.LeaveDays,
		p.DailyRate, p.Gross, uuid.UUID(p.GeneratedBy), p.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("save payroll period: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *Postgres) Find(ctx context.Context, staffID domain.StaffID, month, year int) (*Period, error) {
	const query = `
		SELECT staff_id, tenant_id, month, year, present_days, half_days, absent_days, leave_days,
		       daily_rate, gross, finalized, generated_by, generated_at
		FROM payroll_periods
		WHERE staff_id = $1 AND month = $2 AND year = $3
	`
	var p Period
	var rawStaff, rawTenant, rawBy uuid.UUID
	err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(staffID), month, year).Scan(
		&rawStaff, &rawTenant, &p.Month, &p.Year, &p.PresentDays, &p.HalfDays, &p.AbsentDays, &p.LeaveDays,
		&p.DailyRate, &p.Gross, &p.Finalized, &rawBy, &p.GeneratedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find payroll period: %w", err)
	}
	p.Staff = domain.StaffID(rawStaff)
	p.Tenant = domain.TenantID(rawTenant)
	p.GeneratedBy = domain.UserID(rawBy)
	return &p, nil
}

func (s *Postgres) Finalize(ctx context.Context, staffID domain.StaffID, month, year int) error {
	const query = `
		UPDATE payroll_periods SET finalized = TRUE
		WHERE staff_id = $1 AND month = $2 AND year = $3
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(staffID), month, year)
	if err != nil {
		return fmt.Errorf("finalize payroll period: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
