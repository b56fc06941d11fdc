package exam

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"rtscore/internal/course"
	"rtscore/internal/enrollment"
	"rtscore/internal/events"
	"rtscore/internal/scope"
	"rtscore/pkg/domain"
	dErrors "rtscore/pkg/domain-errors"
	"rtscore/pkg/platform/sentinel"
	"rtscore/pkg/requestcontext"
)

// Store persists attempts. Update is compare-and-set on the expected state:
// a concurrent transition makes the expectation stale and the store returns
// sentinel.ErrInvalidState, so two verifiers can never both win.
type Store interface {
	CreateAttempt(ctx context.Context, a *Attempt) error
	FindAttempt(ctx context.Context, id domain.AttemptID) (*Attempt, error)
	FindActiveAttempt(ctx context.Context, student domain.StudentID, module domain.ModuleID) (*Attempt, error)
	ListByStudent(ctx context.Context, student domain.StudentID) ([]Attempt, error)
	Update(ctx context.Context, a *Attempt, expected State) error
	CreateQuestion(ctx context.Context, q *Question) error
	ListQuestions(ctx context.Context, module domain.ModuleID) ([]Question, error)
}

// StudentDirectory is the slice of the enrollment store the exam engine
// needs.
type StudentDirectory interface {
	FindStudent(ctx context.Context, id domain.StudentID) (*enrollment.Student, error)
	ListEnrollments(ctx context.Context, student domain.StudentID) ([]enrollment.CourseEnrollment, error)
}

// Catalog resolves modules and their parent courses.
type Catalog interface {
	FindModule(ctx context.Context, id domain.ModuleID) (*course.Module, error)
	FindCourse(ctx context.Context, id domain.CourseID) (*course.Course, error)
}

// Service drives attempts through the state graph.
type Service struct {
	store    Store
	students StudentDirectory
	catalog  Catalog
	outbox   events.Store
	logger   *slog.Logger
	metrics  *Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store Store, students StudentDirectory, catalog Catalog, outbox events.Store, opts ...Option) *Service {
	s := &Service{store: store, students: students, catalog: catalog, outbox: outbox, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule creates an attempt, snapshotting the module's marks thresholds.
// One active attempt per (student, module); a cancelled or verified attempt
// frees the slot.
func (s *Service) Schedule(ctx context.Context, actor domain.Actor, in Schedule) (*Attempt, error) {
	ctx, span := otel.Tracer("exam").Start(ctx, "exam.Schedule")
	defer span.End()

	sc, err := scope.Authorize(actor, scope.OpScheduleExam)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	student, err := s.students.FindStudent(ctx, in.Student)
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

	module, err := s.catalog.FindModule(ctx, in.Module)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "module not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load module")
	}
	if !module.Active {
		return nil, dErrors.New(dErrors.CodeValidation, "module is not active")
	}
	if err := s.requireEnrolled(ctx, student, module.Course); err != nil {
		return nil, err
	}

	if existing, err := s.store.FindActiveAttempt(ctx, in.Student, in.Module); err == nil && existing != nil {
		return nil, dErrors.New(dErrors.CodeConflict, "an attempt for this module is already in progress")
	} else if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing attempts")
	}

	a := &Attempt{
		ID:           domain.AttemptID(uuid.New()),
		Tenant:       student.Tenant,
		Student:      in.Student,
		Module:       in.Module,
		State:        StateScheduled,
		WindowOpens:  in.WindowOpens,
		WindowCloses: in.WindowCloses,
		TotalMarks:   module.TotalMarks,
		PassingMarks: module.PassingMarks,
	}
	if err := s.store.CreateAttempt(ctx, a); err != nil {
		if errors.Is(err, sentinel.ErrDuplicate) {
			return nil, dErrors.New(dErrors.CodeConflict, "an attempt for this module is already in progress")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create attempt")
	}
	if s.metrics != nil {
		s.metrics.ObserveTransition(StateScheduled)
	}
	s.logger.InfoContext(ctx, "exam scheduled",
		"attempt_id", a.ID,
		"enrollment_id", student.EnrollmentID,
	)
	return a, nil
}

// Take marks the attempt as sat. Only the student themselves, only inside
// the window.
func (s *Service) Take(ctx context.Context, actor domain.Actor, id domain.AttemptID) (*Attempt, error) {
	if _, err := scope.Authorize(actor, scope.OpTakeExam); err != nil {
		return nil, err
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if domain.UserID(a.Student) != actor.ID {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the scheduled student may take the exam")
	}

	now := requestcontext.Now(ctx)
	if now.Before(a.WindowOpens) || now.After(a.WindowCloses) {
		return nil, dErrors.New(dErrors.CodeWindowClosed, "the exam window is not open")
	}

	return s.transition(ctx, a, StateTaken, func(a *Attempt) {
		t := now
		a.TakenAt = &t
	})
}

// AddQuestion appends to a module's answer key.
func (s *Service) AddQuestion(ctx context.Context, actor domain.Actor, in QuestionInput) (*Question, error) {
	sc, err := scope.Authorize(actor, scope.OpManageQuestions)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	module, err := s.catalog.FindModule(ctx, in.Module)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "module not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load module")
	}
	c, err := s.catalog.FindCourse(ctx, module.Course)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load course")
	}
	if err := sc.Check(c.Tenant); err != nil {
		return nil, err
	}

	q := &Question{
		ID:            domain.QuestionID(uuid.New()),
		Module:        in.Module,
		Number:        in.Number,
		Text:          in.Text,
		CorrectOption: in.CorrectOption,
		Marks:         in.Marks,
	}
	if err := s.store.CreateQuestion(ctx, q); err != nil {
		if errors.Is(err, sentinel.ErrDuplicate) {
			return nil, dErrors.Newf(dErrors.CodeConflict, "question %d already exists for this module", in.Number)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create question")
	}
	return q, nil
}

// Submit scores the student's answers against the module's answer key and
// moves the attempt to scored_unverified with no staff involvement. ScoredBy
// stays empty for automated scoring, so any verifier qualifies.
func (s *Service) Submit(ctx context.Context, actor domain.Actor, id domain.AttemptID, answers []Answer) (*Attempt, error) {
	if _, err := scope.Authorize(actor, scope.OpTakeExam); err != nil {
		return nil, err
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if domain.UserID(a.Student) != actor.ID {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the scheduled student may submit answers")
	}

	now := requestcontext.Now(ctx)
	if now.Before(a.WindowOpens) || now.After(a.WindowCloses) {
		return nil, dErrors.New(dErrors.CodeWindowClosed, "the exam window is not open")
	}

	questions, err := s.store.ListQuestions(ctx, a.Module)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load the answer key")
	}
	if len(questions) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "module has no answer key; marks are entered manually")
	}

	marks, err := scoreAnswers(questions, answers)
	if err != nil {
		return nil, err
	}

	return s.transition(ctx, a, StateScoredUnverified, func(a *Attempt) {
		m := marks
		passed := marks >= a.PassingMarks
		a.MarksObtained = &m
		a.Passed = &passed
	})
}

// EnterMarks records the score and derives the pass flag against the
// snapshotted threshold.
func (s *Service) EnterMarks(ctx context.Context, actor domain.Actor, id domain.AttemptID, marks float64) (*Attempt, error) {
	sc, err := scope.Authorize(actor, scope.OpEnterMarks)
	if err != nil {
		return nil, err
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sc.Check(a.Tenant); err != nil {
		return nil, err
	}
	if marks < 0 || marks > a.TotalMarks {
		return nil, dErrors.Newf(dErrors.CodeValidation, "marks %.2f are outside 0..%.2f", marks, a.TotalMarks)
	}

	return s.transition(ctx, a, StateScoredUnverified, func(a *Attempt) {
		m := marks
		passed := marks >= a.PassingMarks
		by := actor.ID
		a.MarksObtained = &m
		a.Passed = &passed
		a.ScoredBy = &by
	})
}

// Verify finalizes the score. Verifying an already-verified attempt is a
// no-op returning the attempt unchanged; under a race the first verifier
// wins and the loser sees the winner's record, not an error.
func (s *Service) Verify(ctx context.Context, actor domain.Actor, id domain.AttemptID) (*Attempt, error) {
	sc, err := scope.Authorize(actor, scope.OpVerifyExam)
	if err != nil {
		return nil, err
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sc.Check(a.Tenant); err != nil {
		return nil, err
	}
	if a.State == StateVerified {
		return a, nil
	}
	if a.ScoredBy != nil && *a.ScoredBy == actor.ID && actor.Role != domain.RoleSuperAdmin {
		return nil, dErrors.New(dErrors.CodeForbidden, "the scorer may not verify their own entry")
	}

	now := requestcontext.Now(ctx)
	verified, err := s.transition(ctx, a, StateVerified, func(a *Attempt) {
		by := actor.ID
		t := now
		a.VerifiedBy = &by
		a.VerifiedAt = &t
	})
	if err != nil {
		// Lost the race: re-read, and if the winner verified, report
		// success with the winner's record.
		if dErrors.HasCode(err, dErrors.CodeInvalidTransition) {
			if current, loadErr := s.load(ctx, id); loadErr == nil && current.State == StateVerified {
				return current, nil
			}
		}
		return nil, err
	}

	evt, err := events.New(verified.Tenant, events.KindExamVerified, map[string]any{
		"attempt_id": verified.ID.String(),
		"student_id": verified.Student.String(),
		"module_id":  verified.Module.String(),
		"passed":     *verified.Passed,
	}, now)
	if err == nil {
		if appendErr := s.outbox.Append(ctx, evt); appendErr != nil {
			s.logger.ErrorContext(ctx, "failed to append verification event", "error", appendErr)
		}
	}
	return verified, nil
}

// Cancel aborts an attempt that has no marks yet.
func (s *Service) Cancel(ctx context.Context, actor domain.Actor, id domain.AttemptID) (*Attempt, error) {
	sc, err := scope.Authorize(actor, scope.OpCancelExam)
	if err != nil {
		return nil, err
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sc.Check(a.Tenant); err != nil {
		return nil, err
	}
	return s.transition(ctx, a, StateCancelled, func(*Attempt) {})
}

// StudentResult releases the result to the student only after verification.
func (s *Service) StudentResult(ctx context.Context, actor domain.Actor, id domain.AttemptID) (*Result, error) {
	if _, err := scope.Authorize(actor, scope.OpViewOwnResult); err != nil {
		return nil, err
	}
	a, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if domain.UserID(a.Student) != actor.ID {
		return nil, dErrors.New(dErrors.CodeForbidden, "results are visible only to the student who sat the exam")
	}
	if a.State != StateVerified {
		return nil, dErrors.New(dErrors.CodeNotYetAvailable, "the result has not been verified yet")
	}
	return &Result{
		Attempt:       a.ID,
		Module:        a.Module,
		MarksObtained: *a.MarksObtained,
		TotalMarks:    a.TotalMarks,
		PassingMarks:  a.PassingMarks,
		Passed:        *a.Passed,
		VerifiedAt:    *a.VerifiedAt,
	}, nil
}

// VerifiedAttempts lists a student's verified attempts, for eligibility.
func (s *Service) VerifiedAttempts(ctx context.Context, student domain.StudentID) ([]Attempt, error) {
	all, err := s.store.ListByStudent(ctx, student)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list attempts")
	}
	var out []Attempt
	for _, a := range all {
		if a.State == StateVerified {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, id domain.AttemptID) (*Attempt, error) {
	a, err := s.store.FindAttempt(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "attempt not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load attempt")
	}
	return a, nil
}

// transition applies the state change through the closed graph and the
// store's compare-and-set.
func (s *Service) transition(ctx context.Context, a *Attempt, to State, mutate func(*Attempt)) (*Attempt, error) {
	if !canTransition(a.State, to) {
		return nil, dErrors.Newf(dErrors.CodeInvalidTransition, "cannot move attempt from %s to %s", a.State, to)
	}
	from := a.State
	next := *a
	next.State = to
	mutate(&next)
	if err := s.store.Update(ctx, &next, from); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.Newf(dErrors.CodeInvalidTransition, "attempt left state %s concurrently", from)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update attempt")
	}
	if s.metrics != nil {
		s.metrics.ObserveTransition(to)
	}
	return &next, nil
}

func (s *Service) requireEnrolled(ctx context.Context, student *enrollment.Student, courseID domain.CourseID) error {
	enrollments, err := s.students.ListEnrollments(ctx, student.ID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list enrollments")
	}
	for _, e := range enrollments {
		if e.Course == courseID {
			return nil
		}
	}
	return dErrors.New(dErrors.CodeValidation, "student is not enrolled in the module's course")
}
