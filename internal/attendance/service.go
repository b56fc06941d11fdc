package attendance

import (
	"context"
	"errors"
	"log/slog"

	"rtscore/internal/scope"
	"rtscore/internal/staff"
	"rtscore/pkg/domain"
	dErrors "rtscore/pkg/domain-errors"
	"rtscore/pkg/platform/sentinel"
	"rtscore/pkg/requestcontext"
)

// Store persists the register. Upsert replaces any existing record for the
// same (staff, date).
type Store interface {
	Upsert(ctx context.Context, r *Record) error
	ListMonth(ctx context.Context, staffID domain.StaffID, month, year int) ([]Record, error)
}

// Service marks and summarizes attendance.
type Service struct {
	store  Store
	staff  staff.Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(store Store, staffStore staff.Store, opts ...Option) *Service {
	s := &Service{store: store, staff: staffStore, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MarkDay writes one register entry, replacing an earlier mark for the same
// day.
func (s *Service) MarkDay(ctx context.Context, actor domain.Actor, m Mark) (*Record, error) {
	sc, err := scope.Authorize(actor, scope.OpMarkAttendance)
	if err != nil {
		return nil, err
	}
	if err := m.validate(); err != nil {
		return nil, err
	}

	member, err := s.staff.FindByID(ctx, m.Staff)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "staff member not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load staff member")
	}
	if err := sc.Check(member.Tenant); err != nil {
		return nil, err
	}

	rec := &Record{
		Staff:    m.Staff,
		Tenant:   member.Tenant,
		Date:     Day(m.Date),
		Status:   m.Status,
		MarkedBy: actor.ID,
		MarkedAt: requestcontext.Now(ctx),
	}
	if err := s.store.Upsert(ctx, rec); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark attendance")
	}
	return rec, nil
}

// MonthSummary aggregates one month for one staff member. Callers are
// expected to have scoped the staff member already or to be internal
// (payroll, eligibility).
func (s *Service) MonthSummary(ctx context.Context, staffID domain.StaffID, month, year int) (MonthlySummary, error) {
	if month < 1 || month > 12 {
		return MonthlySummary{}, dErrors.Newf(dErrors.CodeValidation, "month %d is outside 1-12", month)
	}
	records, err := s.store.ListMonth(ctx, staffID, month, year)
	if err != nil {
		return MonthlySummary{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list attendance")
	}

	sum := MonthlySummary{Staff: staffID, Month: month, Year: year}
	for _, r := range records {
		switch r.Status {
		case StatusPresent:
			sum.Present++
		case StatusAbsent:
			sum.Absent++
		case StatusHalfDay:
			sum.HalfDays++
		case StatusLeave:
			sum.Leave++
		}
	}
	return sum, nil
}
