package events

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

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
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Append(ctx context.Context, e *Event) error {
	const query = `
		INSERT INTO outbox_events (id, tenant_id, kind, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		e.ID, uuid.UUID(e.Tenant), e.Kind, []byte(e.Payload), e.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("append outbox event: %w", err)
	}
	return nil
}

// ListUnpublished claims a batch with FOR UPDATE SKIP LOCKED so multiple
// worker instances never double-publish within a polling cycle.
func (s *Postgres) ListUnpublished(ctx context.Context, limit int) ([]Event, error) {
	const query = `
		SELECT id, tenant_id, kind, payload, occurred_at
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY occurred_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list unpublished events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var rawTenant uuid.UUID
		var payload []byte
		if err := rows.Scan(&e.ID, &rawTenant, &e.Kind, &payload, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		e.Tenant = domain.TenantID(rawTenant)
		e.Payload = payload
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Postgres) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	const query = `UPDATE outbox_events SET published_at = $2 WHERE id = ANY($1)`
	_, err := s.execer(ctx).ExecContext(ctx, query, pq.Array(ids), at)
	if err != nil {
		return fmt.Errorf("mark events published: %w", err)
	}
	return nil
}
