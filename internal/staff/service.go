package staff

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"rtscore/internal/scope"
	"rtscore/pkg/domain"
	dErrors "rtscore/pkg/domain-errors"
	"rtscore/pkg/platform/sentinel"
	"rtscore/pkg/requestcontext"
)

// Service manages staff records. Hiring and rate changes are director
// level; the daily rate drives payroll.
type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hire is the input to Create.
type Hire struct {
	Tenant      domain.TenantID
	FullName    string
	Position    string
	DailyRate   float64
	JoiningDate time.Time
}

func (h Hire) validate() error {
	if strings.TrimSpace(h.FullName) == "" {
		return dErrors.New(dErrors.CodeValidation, "staff name is required")
	}
	if h.DailyRate < 0 {
		return dErrors.New(dErrors.CodeValidation, "daily rate must not be negative")
	}
	if h.JoiningDate.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "joining date is required")
	}
	return nil
}

// Create registers a staff member.
func (s *Service) Create(ctx context.Context, actor domain.Actor, h Hire) (*Member, error) {
	if actor.Role != domain.RoleSuperAdmin && actor.Role != domain.RoleDirector {
		return nil, dErrors.New(dErrors.CodeForbidden, "only directors may manage staff")
	}
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	if err := sc.Check(h.Tenant); err != nil {
		return nil, err
	}
	if err := h.validate(); err != nil {
		return nil, err
	}
	m := &Member{
		ID:          domain.StaffID(uuid.New()),
		Tenant:      h.Tenant,
		FullName:    strings.TrimSpace(h.FullName),
		Position:    strings.TrimSpace(h.Position),
		DailyRate:   h.DailyRate,
		JoiningDate: h.JoiningDate,
		CreatedAt:   requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, m); err != nil {
		if errors.Is(err, sentinel.ErrDuplicate) {
			return nil, dErrors.New(dErrors.CodeConflict, "staff member already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create staff member")
	}
	s.logger.InfoContext(ctx, "staff member created", "staff_id", m.ID, "tenant_id", m.Tenant)
	return m, nil
}

// Get loads one staff member within the caller's scope.
func (s *Service) Get(ctx context.Context, actor domain.Actor, id domain.StaffID) (*Member, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	m, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "staff member not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load staff member")
	}
	if err := sc.Check(m.Tenant); err != nil {
		return nil, err
	}
	return m, nil
}

// List returns the tenant's staff within the caller's scope.
func (s *Service) List(ctx context.Context, actor domain.Actor, tenant domain.TenantID) ([]Member, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	if err := sc.Check(tenant); err != nil {
		return nil, err
	}
	list, err := s.store.ListByTenant(ctx, tenant)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list staff")
	}
	return list, nil
}

// SetDailyRate updates the current rate. Finalized payroll periods keep the
// figure they were computed with; only future computations see the change.
func (s *Service) SetDailyRate(ctx context.Context, actor domain.Actor, id domain.StaffID, rate float64) error {
	if actor.Role != domain.RoleSuperAdmin && actor.Role != domain.RoleDirector {
		return dErrors.New(dErrors.CodeForbidden, "only directors may change daily rates")
	}
	if rate < 0 {
		return dErrors.New(dErrors.CodeValidation, "daily rate must not be negative")
	}
	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	if err := s.store.UpdateDailyRate(ctx, id, rate); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update daily rate")
	}
	return nil
}
