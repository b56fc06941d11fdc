package ledger

import (
	"context"
	"sync"

	"rtscore/pkg/domain"
	"rtscore/pkg/platform/sentinel"
)

type InMemory struct {
	mu       sync.RWMutex
	records  []Record
	receipts map[string]struct{}
}

func NewInMemory() *InMemory {
	return &InMemory{receipts: make(map[string]struct{})}
}

func (s *InMemory) CreateRecord(ctx context.Context, r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ReceiptNo != "" {
		if _, exists := s.receipts[r.ReceiptNo]; exists {
			return sentinel.ErrDuplicate
		}
		s.receipts[r.ReceiptNo] = struct{}{}
	}
	s.records = append(s.records, *r)
	return nil
}

func (s *InMemory) ListRecords(ctx context.Context, student domain.StudentID, c domain.CourseID) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, r := range s.records {
		if r.Student == student && r.Course == c {
			out = append(out, r)
		}
	}
	return out, nil
}
