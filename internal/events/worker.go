package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	"rtscore/pkg/platform/tx"
)

// Producer is the slice of kgo.Client the worker uses. ProduceSync keeps
// the outbox ordering guarantee simple: a batch is marked published only
// after the broker accepted every record in it.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Worker drains the outbox to Kafka. Claiming and marking happen inside
// one transaction so a crashed worker leaves events unclaimed, not lost.
type Worker struct {
	store    Store
	producer Producer
	runner   tx.Runner
	topic    string
	interval time.Duration
	batch    int
	logger   *slog.Logger
}

type WorkerOption func(*Worker)

func WithInterval(d time.Duration) WorkerOption {
	return func(w *Worker) { w.interval = d }
}

func WithBatchSize(n int) WorkerOption {
	return func(w *Worker) { w.batch = n }
}

func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) { w.logger = logger }
}

func NewWorker(store Store, producer Producer, runner tx.Runner, topic string, opts ...WorkerOption) *Worker {
	w := &Worker{
		store:    store,
		producer: producer,
		runner:   runner,
		topic:    topic,
		interval: 2 * time.Second,
		batch:    100,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until the context is cancelled. Publish failures are logged and
// retried on the next tick; the outbox row stays unpublished.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.DrainOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

// DrainOnce publishes one batch. Exposed for tests and for a flush on
// shutdown.
func (w *Worker) DrainOnce(ctx context.Context) error {
	return w.runner.RunInTx(ctx, func(ctx context.Context) error {
		batch, err := w.store.ListUnpublished(ctx, w.batch)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		records := make([]*kgo.Record, 0, len(batch))
		for i := range batch {
			records = append(records, w.record(&batch[i]))
		}
		if err := w.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
			return err
		}

		ids := make([]uuid.UUID, 0, len(batch))
		for _, e := range batch {
			ids = append(ids, e.ID)
		}
		if err := w.store.MarkPublished(ctx, ids, time.Now()); err != nil {
			return err
		}
		w.logger.DebugContext(ctx, "outbox batch published", "count", len(batch))
		return nil
	})
}

// record keys by tenant so per-institution ordering survives partitioning.
func (w *Worker) record(e *Event) *kgo.Record {
	return &kgo.Record{
		Topic: w.topic,
		Key:   []byte(e.Tenant.String()),
		Value: e.Payload,
		Headers: []kgo.RecordHeader{
			{Key: "kind", Value: []byte(e.Kind)},
			{Key: "event_id", Value: []byte(e.ID.String())},
		},
	}
}
