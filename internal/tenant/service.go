package tenant

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"rtscore/internal/scope"
	"rtscore/pkg/domain"
	dErrors "rtscore/pkg/domain-errors"
	"rtscore/pkg/platform/sentinel"
	"rtscore/pkg/requestcontext"
)

// Store persists institutions and their settings.
type Store interface {
	Create(ctx context.Context, inst *Institution) error
	FindByID(ctx context.Context, id domain.TenantID) (*Institution, error)
	SaveSettings(ctx context.Context, id domain.TenantID, s Settings) error
	FindSettings(ctx context.Context, id domain.TenantID) (Settings, error)
}

// Service orchestrates institution lifecycle and settings reads.
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

// Create registers a new institution. Only the super_admin creates tenants;
// this is the franchise onboarding path.
func (s *Service) Create(ctx context.Context, actor domain.Actor, name, districtCode string) (*Institution, error) {
	if actor.Role != domain.RoleSuperAdmin {
		return nil, dErrors.New(dErrors.CodeForbidden, "only super_admin may create institutions")
	}
	inst, err := NewInstitution(domain.TenantID(uuid.New()), name, districtCode, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, inst); err != nil {
		if errors.Is(err, sentinel.ErrDuplicate) {
			return nil, dErrors.New(dErrors.CodeConflict, "institution name must be unique")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create institution")
	}
	s.logger.InfoContext(ctx, "institution created", "tenant_id", inst.ID, "district", inst.DistrictCode)
	return inst, nil
}

// Get fetches an institution within the caller's scope.
func (s *Service) Get(ctx context.Context, actor domain.Actor, id domain.TenantID) (*Institution, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	if err := sc.Check(id); err != nil {
		return nil, err
	}
	inst, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "institution not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load institution")
	}
	return inst, nil
}

// Settings returns the tenant's configuration, falling back to defaults
// when no override exists. Read-through callers (eligibility) hit this on
// every evaluation, which is why the store may be fronted by a cache.
func (s *Service) Settings(ctx context.Context, id domain.TenantID) (Settings, error) {
	settings, err := s.store.FindSettings(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return DefaultSettings(), nil
		}
		return Settings{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load tenant settings")
	}
	return settings, nil
}

// UpdateSettings stores a tenant override. Director-level only.
func (s *Service) UpdateSettings(ctx context.Context, actor domain.Actor, id domain.TenantID, settings Settings) error {
	if actor.Role != domain.RoleSuperAdmin && actor.Role != domain.RoleDirector {
		return dErrors.New(dErrors.CodeForbidden, "only directors may change institution settings")
	}
	sc, err := scope.Resolve(actor)
	if err != nil {
		return err
	}
	if err := sc.Check(id); err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := s.store.SaveSettings(ctx, id, settings); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save tenant settings")
	}
	return nil
}
