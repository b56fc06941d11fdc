package certificate_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtscore/internal/attendance"
	"rtscore/internal/certificate"
	"rtscore/internal/course"
	"rtscore/internal/eligibility"
	"rtscore/internal/enrollment"
	"rtscore/internal/events"
	"rtscore/internal/exam"
	"rtscore/internal/ledger"
	"rtscore/internal/sequence"
	"rtscore/internal/tenant"
	"rtscore/pkg/domain"
	dErrors "rtscore/pkg/domain-errors"
	"rtscore/pkg/platform/tx"
	"rtscore/pkg/requestcontext"
)

// fixture wires the full read side the evaluator needs, end to end.
type fixture struct {
	certs    *certificate.Service
	ledger   *ledger.Service
	exams    *exam.Service
	outbox   *events.InMemory
	inst     *tenant.Institution
	director domain.Actor
	student  *enrollment.Student
	course   *course.Course
	module   *course.Module
}

func newFixture(t *testing.T) *fixture {
	return newFixtureFor(t, "Rajtech Computer Center", certificate.NewInMemory(), sequence.NewAllocator(sequence.NewInMemory()))
}

// newFixtureFor builds the wiring for one institution. Passing a shared
// certificate store and allocator lets tests exercise issuance across
// institutions.
func newFixtureFor(t *testing.T, instName string, certStore certificate.Store, certSeq *sequence.Allocator) *fixture {
	t.Helper()
	ctx := requestcontext.WithTime(context.Background(), time.Date(2025, 12, 5, 10, 0, 0, 0, time.UTC))

	tenantStore := tenant.NewInMemory()
	tenants := tenant.NewService(tenantStore)
	superAdmin := domain.Actor{ID: domain.UserID(uuid.New()), Role: domain.RoleSuperAdmin}
	inst, err := tenants.Create(ctx, superAdmin, instName, "NAL")
	require.NoError(t, err)

	catalog := course.NewInMemory()
	c := &course.Course{ID: domain.CourseID(uuid.New()), Tenant: inst.ID, Name: "DCA", Fee: 12000, DurationMonths: 12, CreatedAt: time.Now()}
	require.NoError(t, catalog.CreateCourse(ctx, c))
	m := &course.Module{ID: domain.ModuleID(uuid.New()), Course: c.ID, Number: 1, Name: "Fundamentals", TotalMarks: 100, PassingMarks: 40, Active: true}
	require.NoError(t, catalog.CreateModule(ctx, m))

	students := enrollment.NewInMemory()
	registrar := enrollment.NewService(students, catalog, tenants, sequence.NewAllocator(sequence.NewInMemory()), tx.NopRunner{})
	tid := inst.ID
	director := domain.Actor{ID: domain.UserID(uuid.New()), Role: domain.RoleDirector, Tenant: &tid}
	st, err := registrar.Register(ctx, director, enrollment.Registration{Tenant: inst.ID, FullName: "Asha Kumari"})
	require.NoError(t, err)
	_, err = registrar.Enroll(ctx, director, st.ID, c.ID)
	require.NoError(t, err)

	outbox := events.NewInMemory()
	ledgerSvc := ledger.NewService(ledger.NewInMemory(), students, catalog, tenantStore, sequence.NewAllocator(sequence.NewInMemory()), outbox, tx.NopRunner{})
	examSvc := exam.NewService(exam.NewInMemory(), students, catalog, outbox)
	register := attendance.NewStudentRegister(attendance.NewStudentInMemory(), students)
	evaluator := eligibility.NewEvaluator(catalog, examSvc, ledgerSvc, tenants, register)
	certSvc := certificate.NewService(
		certStore, students, catalog, tenantStore, evaluator,
		certSeq, outbox, tx.NopRunner{},
	)

	return &fixture{
		certs:    certSvc,
		ledger:   ledgerSvc,
		exams:    examSvc,
		outbox:   outbox,
		inst:     inst,
		director: director,
		student:  st,
		course:   c,
		module:   m,
	}
}

// completeCourse pays the fee in full and drives the module attempt to
// Verified with a passing score.
func (f *fixture) completeCourse(t *testing.T) {
	t.Helper()
	ctx := requestcontext.WithTime(context.Background(), time.Date(2025, 12, 20, 10, 0, 0, 0, time.UTC))

	tid := f.inst.ID
	accountant := domain.Actor{ID: domain.UserID(uuid.New()), Role: domain.RoleAccountant, Tenant: &tid}
	_, err := f.ledger.RecordPayment(ctx, accountant, ledger.Payment{
		Student: f.student.ID, Course: f.course.ID, Amount: f.course.Fee, Method: ledger.MethodCash,
	})
	require.NoError(t, err)

	manager := domain.Actor{ID: domain.UserID(uuid.New()), Role: domain.RoleStaffManager, Tenant: &tid}
	a, err := f.exams.Schedule(ctx, manager, exam.Schedule{
		Student: f.student.ID, Module: f.module.ID,
		WindowOpens:  time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
		WindowCloses: time.Date(2026, 1, 10, 17, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	inWindow := requestcontext.WithTime(context.Background(), time.Date(2026, 1, 10, 11, 0, 0, 0, time.UTC))
	studentActor := domain.Actor{ID: domain.UserID(f.student.ID), Role: domain.RoleStudent, Tenant: &tid}
	_, err = f.exams.Take(inWindow, studentActor, a.ID)
	require.NoError(t, err)
	_, err = f.exams.EnterMarks(inWindow, accountant, a.ID, 85)
	require.NoError(t, err)
	_, err = f.exams.Verify(inWindow, manager, a.ID)
	require.NoError(t, err)
}

func TestIssue(t *testing.T) {
	issueTime := requestcontext.WithTime(context.Background(), time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC))

	t.Run("issues for an eligible student", func(t *testing.T) {
		f := newFixture(t)
		f.completeCourse(t)

		cert, err := f.certs.Issue(issueTime, f.director, f.student.ID, f.course.ID)
		require.NoError(t, err)
		assert.Equal(t, "CRT-RAJ-2026-0001", cert.Number)
		assert.Equal(t, f.director.ID, cert.IssuedBy)

		var issued int
		for _, e := range f.outbox.All() {
			if e.Kind == events.KindCertificateIssued {
				issued++
			}
		}
		assert.Equal(t, 1, issued)
	})

	t.Run("never issues while ineligible", func(t *testing.T) {
		f := newFixture(t)
		// fee unpaid, module unverified
		_, err := f.certs.Issue(issueTime, f.director, f.student.ID, f.course.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Contains(t, err.Error(), eligibility.ReasonOutstandingBalance)
		assert.Contains(t, err.Error(), eligibility.ReasonModuleUnverified)
	})

	t.Run("duplicate issuance is a conflict", func(t *testing.T) {
		f := newFixture(t)
		f.completeCourse(t)
		_, err := f.certs.Issue(issueTime, f.director, f.student.ID, f.course.ID)
		require.NoError(t, err)
		_, err = f.certs.Issue(issueTime, f.director, f.student.ID, f.course.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("each institution mints its own first number of the year", func(t *testing.T) {
		certStore := certificate.NewInMemory()
		certSeq := sequence.NewAllocator(sequence.NewInMemory())

		var numbers []string
		for _, name := range []string{"Rajtech Computer Center", "Sunrise Computer Academy"} {
			f := newFixtureFor(t, name, certStore, certSeq)
			f.completeCourse(t)
			cert, err := f.certs.Issue(issueTime, f.director, f.student.ID, f.course.ID)
			require.NoError(t, err)
			numbers = append(numbers, cert.Number)
		}
		assert.Equal(t, []string{"CRT-RAJ-2026-0001", "CRT-SUN-2026-0001"}, numbers)
	})

	t.Run("accountants may not issue", func(t *testing.T) {
		f := newFixture(t)
		f.completeCourse(t)
		tid := f.inst.ID
		accountant := domain.Actor{ID: domain.UserID(uuid.New()), Role: domain.RoleAccountant, Tenant: &tid}
		_, err := f.certs.Issue(issueTime, accountant, f.student.ID, f.course.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func TestVerify(t *testing.T) {
	issueTime := requestcontext.WithTime(context.Background(), time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC))

	t.Run("resolves the public payload", func(t *testing.T) {
		f := newFixture(t)
		f.completeCourse(t)
		cert, err := f.certs.Issue(issueTime, f.director, f.student.ID, f.course.ID)
		require.NoError(t, err)

		payload, err := f.certs.Verify(context.Background(), cert.Number)
		require.NoError(t, err)
		assert.Equal(t, "Asha Kumari", payload.StudentName)
		assert.Equal(t, f.student.EnrollmentID, payload.EnrollmentID)
		assert.Equal(t, "DCA", payload.CourseName)
		assert.Equal(t, "Rajtech Computer Center", payload.Institution)
	})

	t.Run("malformed numbers are rejected before lookup", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.certs.Verify(context.Background(), "CERT-123")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("unknown numbers are not found", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.certs.Verify(context.Background(), "CRT-RAJ-2026-4242")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
