package ledger

import (
	"context"
	"database/sql"
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
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) CreateRecord(ctx context.Context, r *Record) error {
	const query = `
		INSERT INTO ledger_records
			(id, tenant_id, student_id, course_id, kind, amount, method, transaction_ref, receipt_no, note, recorded_by, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11, $12)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(r.ID), uuid.UUID(r.Tenant), uuid.UUID(r.Student), uuid.UUID(r.Course),
		string(r.Kind), r.Amount, string(r.Method), r.TransactionRef, r.ReceiptNo,
		r.Note, uuid.UUID(r.RecordedBy), r.RecordedAt,
	)
	if err != nil {
		if txcontext.IsUniqueViolation(err) {
			return sentinel.ErrDuplicate
		}
		return fmt.Errorf("insert ledger record: %w", err)
	}
	return nil
}

func (s *Postgres) ListRecords(ctx context.Context, student domain.StudentID, c domain.CourseID) ([]Record, error) {
	const query = `
		SELECT id, tenant_id, student_id, course_id, kind, amount,
		       COALESCE(method, ''), COALESCE(transaction_ref, ''), COALESCE(receipt_no, ''),
		       COALESCE(note, ''), recorded_by, recorded_at
		FROM ledger_records
		WHERE student_id = $1 AND course_id = $2
		ORDER BY recorded_at
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(student), uuid.UUID(c))
	if err != nil {
		return nil, fmt.Errorf("list ledger records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var rawID, rawTenant, rawStudent, rawCourse, rawBy uuid.UUID
		var kind, method string
		if err := rows.Scan(
			&rawID, &rawTenant, &rawStudent, &rawCourse, &kind, &r.Amount,
			&method, &r.TransactionRef, &r.ReceiptNo, &r.Note, &rawBy, &r.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ledger record: %w", err)
		}
		r.ID = domain.PaymentID(rawID)
		r.Tenant = domain.TenantID(rawTenant)
		r.Student = domain.StudentID(rawStudent)
		r.Course = domain.CourseID(rawCourse)
		r.Kind = Kind(kind)
		r.Method = Method(method)
		r.RecordedBy = domain.UserID(rawBy)
		out = append(out, r)
	}
	return out, rows.Err()
}
