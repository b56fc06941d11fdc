// Package events is the transactional outbox. Write paths append events in
// the same database transaction as the state change; a background worker
// drains the outbox to Kafka. Consumers get at-least-once delivery and the
// write path never blocks on the broker.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"rtscore/pkg/domain"
)

// Kinds published by the core.
const (
	KindPaymentRecorded   = "payment.recorded"
	KindExamVerified      = "exam.verified"
	KindCertificateIssued = "certificate.issued"
)

// Event is one outbox row. PublishedAt is nil until the worker has handed
// the event to the broker.
type Event struct {
	ID          uuid.UUID
	Tenant      domain.TenantID
	Kind        string
	Payload     json.RawMessage
	OccurredAt  time.Time
	PublishedAt *time.Time
}

// New builds an unpublished event, marshalling the payload. Payloads are
// plain structs owned by the emitting package.
func New(tenant domain.TenantID, kind string, payload any, at time.Time) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:         uuid.New(),
		Tenant:     tenant,
		Kind:       kind,
		Payload:    raw,
		OccurredAt: at,
	}, nil
}
