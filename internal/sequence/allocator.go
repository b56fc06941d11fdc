// Package sequence issues the next integer in named, tenant-scoped counters.
// The counter is durable and the increment is a single atomic
// read-modify-write, never an in-process variable: the service runs as many
// concurrent instances and must not reset or duplicate across restarts.
package sequence

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"rtscore/pkg/domain"
	dErrors "rtscore/pkg/domain-errors"
	"rtscore/pkg/platform/sentinel"
	"rtscore/pkg/platform/tx"
)

// Family names one identifier family. Each family has its own counters.
type Family string

const (
	FamilyEnrollment  Family = "enrollment"
	FamilyReceipt     Family = "receipt"
	FamilyCertificate Family = "certificate"
)

// Key addresses exactly one counter. Families that are not month-scoped
// (receipts, certificates) leave Month at zero; the zero month is part of
// the key, so a receipt counter and an enrollment counter for the same
// tenant and year never collide.
type Key struct {
	Tenant domain.TenantID
	Family Family
	Month  int
	Year   int
}

// Store performs the atomic increment. Implementations must guarantee that
// no two concurrent calls for the same key observe the same value, and that
// values are strictly increasing starting at 1.
type Store interface {
	Increment(ctx context.Context, key Key) (int, error)
}

// maxAttempts bounds allocation retries under transient contention. The
// caller retries the whole logical operation beyond this, not the
// primitive.
const maxAttempts = 3

// Allocator wraps the store with bounded retry, metrics and tracing.
type Allocator struct {
	store   Store
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Allocator)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Allocator) { a.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(a *Allocator) { a.metrics = m }
}

func NewAllocator(store Store, opts ...Option) *Allocator {
	a := &Allocator{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Next returns the next value for the key: strictly increasing, starting at
// 1, no duplicates under concurrency. Transient conflicts are retried up to
// maxAttempts, then surfaced as allocation_conflict. When Next is called
// inside a caller's transaction (tx in context), the increment joins that
// transaction, so an aborted caller never leaves an orphaned allocation;
// a conflict then surfaces immediately, because the joined transaction is
// already aborted and only the caller can retry the whole unit.
func (a *Allocator) Next(ctx context.Context, key Key) (int, error) {
	ctx, span := otel.Tracer("sequence").Start(ctx, "sequence.Next")
	defer span.End()
	span.SetAttributes(
		attribute.String("sequence.family", string(key.Family)),
		attribute.Int("sequence.year", key.Year),
	)

	if key.Tenant.IsNil() {
		return 0, dErrors.New(dErrors.CodeValidation, "sequence key requires a tenant")
	}

	_, joined := tx.From(ctx)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		value, err := a.store.Increment(ctx, key)
		if err == nil {
			if a.metrics != nil {
				a.metrics.ObserveAllocation(string(key.Family))
			}
			return value, nil
		}
		if !errors.Is(err, sentinel.ErrSerialization) {
			return 0, dErrors.Wrap(err, dErrors.CodeInternal, "sequence increment failed")
		}
		lastErr = err
		if a.metrics != nil {
			a.metrics.ObserveConflict(string(key.Family))
		}
		if joined {
			// The enclosing transaction is aborted; an in-place retry can
			// only fail again.
			break
		}
		a.logger.WarnContext(ctx, "sequence allocation conflict, retrying",
			"family", key.Family,
			"attempt", attempt,
		)
	}
	return 0, dErrors.Wrap(lastErr, dErrors.CodeAllocationConflict, "sequence allocation did not complete after bounded retry")
}
