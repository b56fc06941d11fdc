package sequence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"rtscore/pkg/platform/sentinel"
	txcontext "rtscore/pkg/platform/tx"
)

// Postgres persists counters in the sequence_counters table. The increment
// is one atomic statement; when a transaction is present in context it joins
// it, which is how receipt allocation and payment insertion become a single
// atomic unit.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) querier(ctx context.Context) rowQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Increment(ctx context.Context, key Key) (int, error) {
	// Upsert-increment is atomic under the unique key; concurrent callers
	// serialize on the row lock and each observes a distinct value.
	const query = `
		INSERT INTO sequence_counters (tenant_id, family, month, year, value)
		VALUES ($1, $2, $3, $4, 1)
		ON CONFLICT (tenant_id, family, month, year)
		DO UPDATE SET value = sequence_counters.value + 1
		RETURNING value
	`
	var value int
	err := s.querier(ctx).QueryRowContext(ctx, query,
		uuid.UUID(key.Tenant),
		string(key.Family),
		key.Month,
		key.Year,
	).Scan(&value)
	if err != nil {
		if txcontext.IsSerializationFailure(err) {
			return 0, fmt.Errorf("increment counter: %w", sentinel.ErrSerialization)
		}
		return 0, fmt.Errorf("increment counter: %w", err)
	}
	return value, nil
}
