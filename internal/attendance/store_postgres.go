package attendance

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"rtscore/pkg/domain"
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

// Upsert keys on (staff_id, date) so re-marking a day replaces the earlier
// status.
func (s *Postgres) Upsert(ctx context.Context, r *Record) error {
	const query = `
		INSERT INTO attendance_records (staff_id, tenant_id, date, status, marked_by, marked_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (staff_id, date)
		DO UPDATE SET status = EXCLUDED.status, marked_by = EXCLUDED.marked_by, marked_at = EXCLUDED.marked_at
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(r.Staff), uuid.UUID(r.Tenant), r.Date, string(r.Status),
		uuid.UUID(r.MarkedBy), r.MarkedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}

func (s *Postgres) ListMonth(ctx context.Context, staffID domain.StaffID, month, year int) ([]Record, error) {
	const query = `
		SELECT staff_id, tenant_id, date, status, marked_by, marked_at
		FROM attendance_records
		WHERE staff_id = $1
		  AND EXTRACT(MONTH FROM date) = $2
		  AND EXTRACT(YEAR FROM date) = $3
		ORDER BY date
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(staffID), month, year)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var rawStaff, rawTenant, rawBy uuid.UUID
		var status string
		if err := rows.Scan(&rawStaff, &rawTenant, &r.Date, &status, &rawBy, &r.MarkedAt); err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		r.Staff = domain.StaffID(rawStaff)
		r.Tenant = domain.TenantID(rawTenant)
		r.Status = Status(status)
		r.MarkedBy = domain.UserID(rawBy)
		out = append(out, r)
	}
	return out, rows.Err()
}
