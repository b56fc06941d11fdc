package course

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"rtscore/internal/scope"
	"rtscore/pkg/domain"
	dErrors "rtscore/pkg/domain-errors"
	"rtscore/pkg/platform/sentinel"
	"rtscore/pkg/requestcontext"
)

// Service manages the catalog. Writes are director-level; reads follow the
// caller's tenant scope.
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

// CourseInput is the input to CreateCourse.
type CourseInput struct {
	Tenant         domain.TenantID
	Name           string
	Fee            float64
	DurationMonths int
}

func (in CourseInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "course name is required")
	}
	if in.Fee < 0 {
		return dErrors.New(dErrors.CodeValidation, "course fee must not be negative")
	}
	if in.DurationMonths <= 0 {
		return dErrors.New(dErrors.CodeValidation, "course duration must be at least one month")
	}
	return nil
}

// ModuleInput is the input to AddModule.
type ModuleInput struct {
	Course       domain.CourseID
	Number       int
	Name         string
	TotalMarks   float64
	PassingMarks float64
}

func (in ModuleInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "module name is required")
	}
	if in.Number <= 0 {
		return dErrors.New(dErrors.CodeValidation, "module number must be positive")
	}
	if in.TotalMarks <= 0 {
		return dErrors.New(dErrors.CodeValidation, "module total marks must be positive")
	}
	if in.PassingMarks < 0 || in.PassingMarks > in.TotalMarks {
		return dErrors.New(dErrors.CodeValidation, "passing marks must be within 0 and total marks")
	}
	return nil
}

// CreateCourse adds a course to the tenant's catalog.
func (s *Service) CreateCourse(ctx context.Context, actor domain.Actor, in CourseInput) (*Course, error) {
	if actor.Role != domain.RoleSuperAdmin && actor.Role != domain.RoleDirector {
		return nil, dErrors.New(dErrors.CodeForbidden, "only directors may manage the catalog")
	}
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	if err := sc.Check(in.Tenant); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	c := &Course{
		ID:             domain.CourseID(uuid.New()),
		Tenant:         in.Tenant,
		Name:           strings.TrimSpace(in.Name),
		Fee:            in.Fee,
		DurationMonths: in.DurationMonths,
		CreatedAt:      requestcontext.Now(ctx),
	}
	if err := s.store.CreateCourse(ctx, c); err != nil {
		if errors.Is(err, sentinel.ErrDuplicate) {
			return nil, dErrors.New(dErrors.CodeConflict, "course already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create course")
	}
	s.logger.InfoContext(ctx, "course created", "course_id", c.ID, "tenant_id", c.Tenant)
	return c, nil
}

// AddModule appends an exam unit to a course.
func (s *Service) AddModule(ctx context.Context, actor domain.Actor, in ModuleInput) (*Module, error) {
	if actor.Role != domain.RoleSuperAdmin && actor.Role != domain.RoleDirector {
		return nil, dErrors.New(dErrors.CodeForbidden, "only directors may manage the catalog")
	}
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	c, err := s.load(ctx, in.Course)
	if err != nil {
		return nil, err
	}
	if err := sc.Check(c.Tenant); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	m := &Module{
		ID:           domain.ModuleID(uuid.New()),
		Course:       in.Course,
		Number:       in.Number,
		Name:         strings.TrimSpace(in.Name),
		TotalMarks:   in.TotalMarks,
		PassingMarks: in.PassingMarks,
		Active:       true,
	}
	if err := s.store.CreateModule(ctx, m); err != nil {
		if errors.Is(err, sentinel.ErrDuplicate) {
			return nil, dErrors.New(dErrors.CodeConflict, "module number already used in this course")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create module")
	}
	return m, nil
}

// Get loads one course within the caller's scope.
func (s *Service) Get(ctx context.Context, actor domain.Actor, id domain.CourseID) (*Course, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sc.Check(c.Tenant); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) load(ctx context.Context, id domain.CourseID) (*Course, error) {
	c, err := s.store.FindCourse(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "course not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load course")
	}
	return c, nil
}

// Modules lists a course's modules within the caller's scope.
func (s *Service) Modules(ctx context.Context, actor domain.Actor, id domain.CourseID) ([]Module, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sc.Check(c.Tenant); err != nil {
		return nil, err
	}
	list, err := s.store.ListModules(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list modules")
	}
	return list, nil
}
