package ledger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"rtscore/internal/course"
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

// Store persists ledger records. ListRecords must return a consistent
// snapshot: a balance computed from it never mixes states across a
// concurrent write.
type Store interface {
	CreateRecord(ctx context.Context, r *Record) error
	ListRecords(ctx context.Context, student domain.StudentID, c domain.CourseID) ([]Record, error)
}

// StudentDirectory is the slice of the enrollment store the ledger needs.
type StudentDirectory interface {
	FindStudent(ctx context.Context, id domain.StudentID) (*enrollment.Student, error)
	ListEnrollments(ctx context.Context, student domain.StudentID) ([]enrollment.CourseEnrollment, error)
}

// Catalog resolves courses and their fees.
type Catalog interface {
	FindCourse(ctx context.Context, id domain.CourseID) (*course.Course, error)
}

// InstitutionDirectory resolves the institution code stamped onto receipt
// numbers.
type InstitutionDirectory interface {
	FindByID(ctx context.Context, id domain.TenantID) (*tenant.Institution, error)
}

// Service is the ledger entry point.
type Service struct {
	store        Store
	students     StudentDirectory
	catalog      Catalog
	institutions InstitutionDirectory
	seq          *sequence.Allocator
	outbox       events.Store
	runner       tx.Runner
	logger       *slog.Logger
	metrics      *Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store Store, students StudentDirectory, catalog Catalog, institutions InstitutionDirectory, seq *sequence.Allocator, outbox events.Store, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		store:        store,
		students:     students,
		catalog:      catalog,
		institutions: institutions,
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

// paymentRecorded is the outbox payload for a recorded payment.
type paymentRecorded struct {
	PaymentID    string  `json:"payment_id"`
	StudentID    string  `json:"student_id"`
	EnrollmentID string  `json:"enrollment_id"`
	CourseID     string  `json:"course_id"`
	ReceiptNo    string  `json:"receipt_no"`
	Amount       float64 `json:"amount"`
	Method       string  `json:"method"`
}

// RecordPayment validates, mints a receipt number and appends the record.
// Validation is ordered: amount first, then method and reference, then
// existence and scope, so a caller fixing errors sees them in a stable
// sequence. The receipt allocation, the insert and the outbox append share
// one transaction.
func (s *Service) RecordPayment(ctx context.Context, actor domain.Actor, p Payment) (*Record, error) {
	ctx, span := otel.Tracer("ledger").Start(ctx, "ledger.RecordPayment")
	defer span.End()

	sc, err := scope.Authorize(actor, scope.OpRecordPayment)
	if err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	student, c, err := s.resolveTarget(ctx, sc, p.Student, p.Course)
	if err != nil {
		return nil, err
	}
	inst, err := s.institutions.FindByID(ctx, student.Tenant)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load institution")
	}

	now := requestcontext.Now(ctx)
	rec := &Record{
		ID:             domain.PaymentID(uuid.New()),
		Tenant:         student.Tenant,
		Student:        p.Student,
		Course:         c.ID,
		Kind:           KindPayment,
		Amount:         p.Amount,
		Method:         p.Method,
		TransactionRef: p.TransactionRef,
		Note:           p.Note,
		RecordedBy:     actor.ID,
		RecordedAt:     now,
	}

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		seq, err := s.seq.Next(ctx, sequence.Key{
			Tenant: student.Tenant,
			Family: sequence.FamilyReceipt,
			Year:   now.Year(),
		})
		if err != nil {
			return err
		}
		rec.ReceiptNo, err = identifier.FormatReceipt(identifier.Receipt{
			InstCode: inst.Code,
			Year:     now.Year(),
			Seq:      seq,
		})
		if err != nil {
			return err
		}
		if err := s.store.CreateRecord(ctx, rec); err != nil {
			if errors.Is(err, sentinel.ErrDuplicate) {
				return dErrors.New(dErrors.CodeConflict, "receipt number already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record payment")
		}
		evt, err := events.New(student.Tenant, events.KindPaymentRecorded, paymentRecorded{
			PaymentID:    rec.ID.String(),
			StudentID:    student.ID.String(),
			EnrollmentID: student.EnrollmentID,
			CourseID:     c.ID.String(),
			ReceiptNo:    rec.ReceiptNo,
			Amount:       rec.Amount,
			Method:       string(rec.Method),
		}, now)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build payment event")
		}
		return s.outbox.Append(ctx, evt)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ObservePayment(string(p.Method), p.Amount)
	}
	span.SetAttributes(attribute.String("ledger.receipt", rec.ReceiptNo))
	s.logger.InfoContext(ctx, "payment recorded",
		"receipt_no", rec.ReceiptNo,
		"enrollment_id", student.EnrollmentID,
		"method", p.Method,
	)
	return rec, nil
}

// RecordAdjustment appends a signed correction. No receipt is minted;
// adjustments are internal bookkeeping, not customer-facing documents.
func (s *Service) RecordAdjustment(ctx context.Context, actor domain.Actor, a Adjustment) (*Record, error) {
	sc, err := scope.Authorize(actor, scope.OpRecordAdjustment)
	if err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	student, c, err := s.resolveTarget(ctx, sc, a.Student, a.Course)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		ID:         domain.PaymentID(uuid.New()),
		Tenant:     student.Tenant,
		Student:    a.Student,
		Course:     c.ID,
		Kind:       KindAdjustment,
		Amount:     a.Amount,
		Note:       a.Note,
		RecordedBy: actor.ID,
		RecordedAt: requestcontext.Now(ctx),
	}
	if err := s.store.CreateRecord(ctx, rec); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record adjustment")
	}
	if s.metrics != nil {
		s.metrics.ObserveAdjustment()
	}
	s.logger.InfoContext(ctx, "adjustment recorded",
		"enrollment_id", student.EnrollmentID,
		"amount", a.Amount,
	)
	return rec, nil
}

// GetBalance recomputes the position from the full record set. Students may
// only read their own balance.
func (s *Service) GetBalance(ctx context.Context, actor domain.Actor, studentID domain.StudentID, courseID domain.CourseID) (Balance, error) {
	sc, err := scope.Authorize(actor, scope.OpViewBalance)
	if err != nil {
		return Balance{}, err
	}

	student, err := s.students.FindStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Balance{}, dErrors.New(dErrors.CodeNotFound, "student not found")
		}
		return Balance{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load student")
	}
	if err := sc.Check(student.Tenant); err != nil {
		return Balance{}, err
	}
	if actor.Role == domain.RoleStudent && actor.ID != domain.UserID(studentID) {
		return Balance{}, dErrors.New(dErrors.CodeForbidden, "students may only view their own balance")
	}

	return s.ComputeBalance(ctx, studentID, courseID)
}

// ComputeBalance recomputes the position without an authorization check.
// Internal callers (eligibility, certificate issuance) run inside already
// authorized operations.
func (s *Service) ComputeBalance(ctx context.Context, studentID domain.StudentID, courseID domain.CourseID) (Balance, error) {
	c, err := s.catalog.FindCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Balance{}, dErrors.New(dErrors.CodeNotFound, "course not found")
		}
		return Balance{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load course")
	}

	records, err := s.store.ListRecords(ctx, studentID, courseID)
	if err != nil {
		return Balance{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list ledger records")
	}

	b := Balance{Student: studentID, Course: courseID, CourseFee: c.Fee}
	for _, r := range records {
		switch r.Kind {
		case KindPayment:
			b.TotalPaid += r.Amount
		case KindAdjustment:
			b.TotalAdjusted += r.Amount
		}
	}
	b.Outstanding = b.CourseFee - b.TotalPaid - b.TotalAdjusted
	return b, nil
}

// resolveTarget loads and scope-checks the student, confirms the student is
// active and enrolled in the course, and returns both.
func (s *Service) resolveTarget(ctx context.Context, sc scope.Scope, studentID domain.StudentID, courseID domain.CourseID) (*enrollment.Student, *course.Course, error) {
	student, err := s.students.FindStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "student not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load student")
	}
	if err := sc.Check(student.Tenant); err != nil {
		return nil, nil, err
	}
	if student.Deleted() {
		return nil, nil, dErrors.New(dErrors.CodeNotFound, "student was removed")
	}

	c, err := s.catalog.FindCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "course not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load course")
	}
	if c.Tenant != student.Tenant {
		return nil, nil, dErrors.New(dErrors.CodeScopeViolation, "course belongs to another institution")
	}

	enrollments, err := s.students.ListEnrollments(ctx, studentID)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list enrollments")
	}
	for _, e := range enrollments {
		if e.Course == courseID {
			return student, c, nil
		}
	}
	return nil, nil, dErrors.New(dErrors.CodeValidation, "student is not enrolled in this course")
}
