package payroll

import (
	"context"
	"errors"
	"log/slog"

	"rtscore/internal/attendance"
	"rtscore/internal/scope"
	"rtscore/internal/staff"
	"rtscore/pkg/domain"
	dErrors "rtscore/pkg/domain-errors"
	"rtscore/pkg/platform/sentinel"
	"rtscore/pkg/requestcontext"
)

// Store persists computed periods. Save replaces an unfinalized period and
// returns sentinel.ErrInvalidState when the stored period is finalized.
type Store interface {
	Save(ctx context.Context, p *Period) error
	Find(ctx context.Context, staffID domain.StaffID, month, year int) (*Period, error)
	Finalize(ctx context.Context, staffID domain.StaffID, month, year int) error
}

// Register is the attendance slice payroll reads.
type Register interface {
	MonthSummary(ctx context.Context, staffID domain.StaffID, month, year int) (attendance.MonthlySummary, error)
}

// Service computes and finalizes payroll periods.
type Service struct {
	store    Store
	staff    staff.Store
	register Register
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(store Store, staffStore staff.Store, register Register, opts ...Option) *Service {
	s := &Service{store: store, staff: staffStore, register: register, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compute aggregates the month. The daily rate is read at computation time
// from the staff record; a finalized period rejects recomputation so a
// later rate edit cannot rewrite a salary already paid.
func (s *Service) Compute(ctx context.Context, actor domain.Actor, staffID domain.StaffID, month, year int) (*Period, error) {
	sc, err := scope.Authorize(actor, scope.OpComputePayroll)
	if err != nil {
		return nil, err
	}
	if month < 1 || month > 12 {
		return nil, dErrors.Newf(dErrors.CodeValidation, "month %d is outside 1-12", month)
	}

	member, err := s.staff.FindByID(ctx, staffID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "staff member not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load staff member")
	}
	if err := sc.Check(member.Tenant); err != nil {
		return nil, err
	}

	if existing, err := s.store.Find(ctx, staffID, month, year); err == nil && existing.Finalized {
		return nil, dErrors.New(dErrors.CodeAlreadyFinalized, "payroll for this period is finalized")
	} else if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load payroll period")
	}

	sum, err := s.register.MonthSummary(ctx, staffID, month, year)
	if err != nil {
		return nil, err
	}

	p := &Period{
		Staff:       staffID,
		Tenant:      member.Tenant,
		Month:       month,
		Year:        year,
		PresentDays: sum.Present,
		HalfDays:    sum.HalfDays,
		AbsentDays:  sum.Absent,
		LeaveDays:   sum.Leave,
		DailyRate:   member.DailyRate,
		Gross:       float64(sum.Present)*member.DailyRate + float64(sum.HalfDays)*member.DailyRate*0.5,
		GeneratedBy: actor.ID,
		GeneratedAt: requestcontext.Now(ctx),
	}
	if err := s.store.Save(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.New(dErrors.CodeAlreadyFinalized, "payroll for this period is finalized")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save payroll period")
	}
	s.logger.InfoContext(ctx, "payroll computed",
		"staff_id", staffID,
		"month", month,
		"year", year,
		"gross", p.Gross,
	)
	return p, nil
}

// Finalize locks the period. Director-level only.
func (s *Service) Finalize(ctx context.Context, actor domain.Actor, staffID domain.StaffID, month, year int) error {
	sc, err := scope.Authorize(actor, scope.OpFinalizePayroll)
	if err != nil {
		return err
	}
	p, err := s.store.Find(ctx, staffID, month, year)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "no computed payroll for this period")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load payroll period")
	}
	if err := sc.Check(p.Tenant); err != nil {
		return err
	}
	if p.Finalized {
		return nil
	}
	if err := s.store.Finalize(ctx, staffID, month, year); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to finalize payroll")
	}
	return nil
}

// Get reads a computed period within the caller's scope.
func (s *Service) Get(ctx context.Context, actor domain.Actor, staffID domain.StaffID, month, year int) (*Period, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	p, err := s.store.Find(ctx, staffID, month, year)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no computed payroll for this period")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load payroll period")
	}
	if err := sc.Check(p.Tenant); err != nil {
		return nil, err
	}
	return p, nil
}
