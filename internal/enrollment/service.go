package enrollment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"rtscore/internal/course"
	"rtscore/internal/identifier"
	"rtscore/internal/scope"
	"rtscore/internal/sequence"
	"rtscore/internal/tenant"
	"rtscore/pkg/domain"
	dErrors "rtscore/pkg/domain-errors"
	"rtscore/pkg/platform/sentinel"
	"rtscore/pkg/platform/tx"
	"rtscore/pkg/requestcontext"
)

// Store persists students and their course enrollments.
type Store interface {
	CreateStudent(ctx context.Context, s *Student) error
	FindStudent(ctx context.Context, id domain.StudentID) (*Student, error)
	FindByEnrollmentID(ctx context.Context, enrollmentID string) (*Student, error)
	SoftDeleteStudent(ctx context.Context, id domain.StudentID, at time.Time) error
	CreateEnrollment(ctx context.Context, e *CourseEnrollment) error
	ListEnrollments(ctx context.Context, student domain.StudentID) ([]CourseEnrollment, error)
}

// InstitutionDirectory is the slice of the tenant service the registrar
// needs: district code and name-derived initials for identifier minting.
type InstitutionDirectory interface {
	Get(ctx context.Context, actor domain.Actor, id domain.TenantID) (*tenant.Institution, error)
}

// Service is the registrar.
type Service struct {
	store        Store
	catalog      course.Store
	institutions InstitutionDirectory
	seq          *sequence.Allocator
	runner       tx.Runner
	logger       *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(store Store, catalog course.Store, institutions InstitutionDirectory, seq *sequence.Allocator, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		store:        store,
		catalog:      catalog,
		institutions: institutions,
		seq:          seq,
		runner:       runner,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a student and mints the enrollment identifier. The
// sequence increment and the insert share one transaction: a failed insert
// rolls the counter back with it, so issued identifiers stay gapless per
// (tenant, month, year) up to the storage layer's guarantees.
func (s *Service) Register(ctx context.Context, actor domain.Actor, reg Registration) (*Student, error) {
	ctx, span := otel.Tracer("enrollment").Start(ctx, "enrollment.Register")
	defer span.End()

	sc, err := scope.Authorize(actor, scope.OpRegisterStudent)
	if err != nil {
		return nil, err
	}
	if err := sc.Check(reg.Tenant); err != nil {
		return nil, err
	}
	if err := reg.validate(); err != nil {
		return nil, err
	}

	inst, err := s.institutions.Get(ctx, actor, reg.Tenant)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	student := &Student{
		ID:           domain.StudentID(uuid.New()),
		Tenant:       reg.Tenant,
		FullName:     reg.FullName,
		GuardianName: reg.GuardianName,
		Phone:        reg.Phone,
		Batch:        reg.Batch,
		RegisteredAt: now,
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		seq, err := s.seq.Next(ctx, sequence.Key{
			Tenant: reg.Tenant,
			Family: sequence.FamilyEnrollment,
			Month:  int(now.Month()),
			Year:   now.Year(),
		})
		if err != nil {
			return err
		}
		student.EnrollmentID, err = identifier.FormatEnrollment(identifier.Enrollment{
			District: inst.DistrictCode,
			Initials: inst.Initials,
			Month:    int(now.Month()),
			Year:     now.Year(),
			Seq:      seq,
		})
		if err != nil {
			return err
		}
		if err := s.store.CreateStudent(ctx, student); err != nil {
			if errors.Is(err, sentinel.ErrDuplicate) {
				return dErrors.New(dErrors.CodeConflict, "enrollment identifier already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create student")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("enrollment.id", student.EnrollmentID))
	s.logger.InfoContext(ctx, "student registered",
		"enrollment_id", student.EnrollmentID,
		"tenant_id", student.Tenant,
	)
	return student, nil
}

// Enroll binds a registered student to a course of the same institution.
func (s *Service) Enroll(ctx context.Context, actor domain.Actor, studentID domain.StudentID, courseID domain.CourseID) (*CourseEnrollment, error) {
	sc, err := scope.Authorize(actor, scope.OpEnrollCourse)
	if err != nil {
		return nil, err
	}

	student, err := s.loadActive(ctx, sc, studentID)
	if err != nil {
		return nil, err
	}

	c, err := s.catalog.FindCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "course not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load course")
	}
	if c.Tenant != student.Tenant {
		return nil, dErrors.New(dErrors.CodeScopeViolation, "course belongs to another institution")
	}

	e := &CourseEnrollment{
		Student:    studentID,
		Course:     courseID,
		EnrolledAt: requestcontext.Now(ctx),
	}
	if err := s.store.CreateEnrollment(ctx, e); err != nil {
		if errors.Is(err, sentinel.ErrDuplicate) {
			return nil, dErrors.New(dErrors.CodeConflict, "student is already enrolled in this course")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to enroll student")
	}
	return e, nil
}

// Get loads a student within the caller's scope. Soft-deleted students are
// still returned here; callers that need an active student use the write
// paths, which reject them.
func (s *Service) Get(ctx context.Context, actor domain.Actor, id domain.StudentID) (*Student, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	student, err := s.store.FindStudent(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "student not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load student")
	}
	if err := sc.Check(student.Tenant); err != nil {
		return nil, err
	}
	return student, nil
}

// Lookup resolves a student by the human-facing enrollment identifier. The
// identifier is validated through the codec first, so malformed input never
// reaches the store.
func (s *Service) Lookup(ctx context.Context, actor domain.Actor, enrollmentID string) (*Student, error) {
	if _, err := identifier.ParseEnrollment(enrollmentID); err != nil {
		return nil, err
	}
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	student, err := s.store.FindByEnrollmentID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "student not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up student")
	}
	if err := sc.Check(student.Tenant); err != nil {
		return nil, err
	}
	return student, nil
}

// Delete soft-deletes a student. The record and its identifier survive for
// historical lookups.
func (s *Service) Delete(ctx context.Context, actor domain.Actor, id domain.StudentID) error {
	sc, err := scope.Authorize(actor, scope.OpRemoveStudent)
	if err != nil {
		return err
	}
	if _, err := s.loadActive(ctx, sc, id); err != nil {
		return err
	}
	if err := s.store.SoftDeleteStudent(ctx, id, requestcontext.Now(ctx)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete student")
	}
	return nil
}

// Enrollments lists the student's course enrollments within scope.
func (s *Service) Enrollments(ctx context.Context, actor domain.Actor, id domain.StudentID) ([]CourseEnrollment, error) {
	sc, err := scope.Resolve(actor)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadActive(ctx, sc, id); err != nil {
		return nil, err
	}
	list, err := s.store.ListEnrollments(ctx, id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list enrollments")
	}
	return list, nil
}

func (s *Service) loadActive(ctx context.Context, sc scope.Scope, id domain.StudentID) (*Student, error) {
	student, err := s.store.FindStudent(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "student not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load student")
	}
	if err := sc.Check(student.Tenant); err != nil {
		return nil, err
	}
	if student.Deleted() {
		return nil, dErrors.New(dErrors.CodeNotFound, "student was removed")
	}
	return student, nil
}
