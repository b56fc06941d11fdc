package certificate

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"rtscore/internal/course"
	"rtscore/internal/eligibility"
	"rtscore/internal/enrollment"
	"rtscore/internal/events"
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

// Store persists certificates. One certificate per (student, course);
// Create returns sentinel.ErrDuplicate for a second issuance.
type Store interface {
	Create(ctx context.Context, c *Certificate) error
	FindByNumber(ctx context.Context, number string) (*Certificate, error)
	FindByStudentCourse(ctx context.Context, student domain.StudentID, courseID domain.CourseID) (*Certificate, error)
}

// StudentDirectory is the slice of the enrollment store issuance needs.
type StudentDirectory interface {
	FindStudent(ctx context.Context, id domain.StudentID) (*enrollment.Student, error)
}

// Catalog resolves courses for the verification payload.
type Catalog interface {
	FindCourse(ctx context.Context, id domain.CourseID) (*course.Course, error)
}

// InstitutionDirectory resolves institution names for the payload.
type InstitutionDirectory interface {
	FindByID(ctx context.Context, id domain.TenantID) (*tenant.Institution, error)
}

// Service issues and verifies certificates.
type Service struct {
	store        Store
	students     StudentDirectory
	catalog      Catalog
	institutions InstitutionDirectory
	evaluator    *eligibility.Evaluator
	seq          *sequence.Allocator
	outbox       events.Store
	runner       tx.Runner
	logger       *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(store Store, students StudentDirectory, catalog Catalog, institutions InstitutionDirectory, evaluator *eligibility.Evaluator, seq *sequence.Allocator, outbox events.Store, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		store:        store,
		students:     students,
		catalog:      catalog,
		institutions: institutions,
		evaluator:    evaluator,
		seq:          seq,
		outbox:       outbox,
		runner:       runner,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// certificateIssued is the outbox payload.
type certificateIssued struct {
	CertificateID string `json:"certificate_id"`
	Number        string `json:"number"`
	StudentID     string `json:"student_id"`
	EnrollmentID  string `json:"enrollment_id"`
	CourseID      string `json:"course_id"`
}

// Issue mints a certificate. Eligibility is evaluated again inside the
// issuing transaction; an ineligible student can never end up holding a
// certificate no matter how the calls interleave.
func (s *Service) Issue(ctx context.Context, actor domain.Actor, studentID domain.StudentID, courseID domain.CourseID) (*Certificate, error) {
	ctx, span := otel.Tracer("certificate").Start(ctx, "certificate.Issue")
	defer span.End()

	sc, err := scope.Authorize(actor, scope.OpIssueCertificate)
	if err != nil {
		return nil, err
	}

	student, err := s.students.FindStudent(ctx, studentID)
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

	inst, err := s.institutions.FindByID(ctx, student.Tenant)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load institution")
	}

	now := requestcontext.Now(ctx)
	cert := &Certificate{
		ID:       domain.CertificateID(uuid.New()),
		Tenant:   student.Tenant,
		Student:  studentID,
		Course:   courseID,
		IssuedBy: actor.ID,
		IssuedAt: now,
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.FindByStudentCourse(ctx, studentID, courseID); err == nil {
			return dErrors.New(dErrors.CodeConflict, "a certificate for this course was already issued")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check prior issuance")
		}

		ev, err := s.evaluator.IsCertificateEligible(ctx, student.Tenant, studentID, courseID)
		if err != nil {
			return err
		}
		if !ev.Eligible {
			return dErrors.Newf(dErrors.CodeValidation, "student is not eligible: %s", joinReasons(ev.Reasons))
		}

		seq, err := s.seq.Next(ctx, sequence.Key{
			Tenant: student.Tenant,
			Family: sequence.FamilyCertificate,
			Year:   now.Year(),
		})
		if err != nil {
			return err
		}
		cert.Number, err = identifier.FormatCertificate(identifier.Certificate{
			InstCode: inst.Code,
			Year:     now.Year(),
			Seq:      seq,
		})
		if err != nil {
			return err
		}

		if err := s.store.Create(ctx, cert); err != nil {
			if errors.Is(err, sentinel.ErrDuplicate) {
				return dErrors.New(dErrors.CodeConflict, "a certificate for this course was already issued")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create certificate")
		}

		evt, err := events.New(student.Tenant, events.KindCertificateIssued, certificateIssued{
			CertificateID: cert.ID.String(),
			Number:        cert.Number,
			StudentID:     studentID.String(),
			EnrollmentID:  student.EnrollmentID,
			CourseID:      courseID.String(),
		}, now)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build issuance event")
		}
		return s.outbox.Append(ctx, evt)
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("certificate.number", cert.Number))
	s.logger.InfoContext(ctx, "certificate issued",
		"number", cert.Number,
		"enrollment_id", student.EnrollmentID,
	)
	return cert, nil
}

// Verify resolves a certificate number to its public payload. This is the
// QR code endpoint: unauthenticated, so it exposes only what is printed on
// the certificate anyway.
func (s *Service) Verify(ctx context.Context, number string) (*VerificationPayload, error) {
	if _, err := identifier.ParseCertificate(number); err != nil {
		return nil, err
	}
	cert, err := s.store.FindByNumber(ctx, number)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "certificate not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certificate")
	}

	student, err := s.students.FindStudent(ctx, cert.Student)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load student")
	}
	c, err := s.catalog.FindCourse(ctx, cert.Course)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load course")
	}
	inst, err := s.institutions.FindByID(ctx, cert.Tenant)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load institution")
	}

	return &VerificationPayload{
		Number:       cert.Number,
		StudentName:  student.FullName,
		EnrollmentID: student.EnrollmentID,
		CourseName:   c.Name,
		Institution:  inst.Name,
		IssuedAt:     cert.IssuedAt,
	}, nil
}

func joinReasons(reasons []eligibility.Reason) string {
	codes := make([]string, 0, len(reasons))
	for _, r := range reasons {
		codes = append(codes, r.Code)
	}
	return strings.Join(codes, ", ")
}
