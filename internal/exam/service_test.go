package exam_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtscore/internal/course"
	"rtscore/internal/enrollment"
	"rtscore/internal/events"
	"rtscore/internal/exam"
	"rtscore/internal/sequence"
	"rtscore/internal/tenant"
	"rtscore/pkg/domain"
	dErrors "rtscore/pkg/domain-errors"
	"rtscore/pkg/platform/tx"
	"rtscore/pkg/requestcontext"
)

var (
	windowOpens  = time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	windowCloses = time.Date(2026, 1, 10, 17, 0, 0, 0, time.UTC)
	inWindow     = time.Date(2026, 1, 10, 11, 0, 0, 0, time.UTC)
)

type fixture struct {
	svc     *exam.Service
	outbox  *events.InMemory
	inst    *tenant.Institution
	manager domain.Actor
	scorer  domain.Actor
	student *enrollment.Student
	module  *course.Module
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := requestcontext.WithTime(context.Background(), time.Date(2025, 12, 5, 10, 0, 0, 0, time.UTC))

	tenants := tenant.NewService(tenant.NewInMemory())
	superAdmin := domain.Actor{ID: domain.UserID(uuid.New()), Role: domain.RoleSuperAdmin}
	inst, err := tenants.Create(ctx, superAdmin, "Rajtech Computer Center", "NAL")
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
	return &fixture{
		svc:     exam.NewService(exam.NewInMemory(), students, catalog, outbox),
		outbox:  outbox,
		inst:    inst,
		manager: domain.Actor{ID: domain.UserID(uuid.New()), Role: domain.RoleStaffManager, Tenant: &tid},
		scorer:  domain.Actor{ID: domain.UserID(uuid.New()), Role: domain.RoleAccountant, Tenant: &tid},
		student: st,
		module:  m,
	}
}

func (f *fixture) studentActor() domain.Actor {
	tid := f.inst.ID
	return domain.Actor{ID: domain.UserID(f.student.ID), Role: domain.RoleStudent, Tenant: &tid}
}

func (f *fixture) schedule(t *testing.T) *exam.Attempt {
	t.Helper()
	a, err := f.svc.Schedule(context.Background(), f.manager, exam.Schedule{
		Student: f.student.ID, Module: f.module.ID,
		WindowOpens: windowOpens, WindowCloses: windowCloses,
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) takeAndScore(t *testing.T, marks float64) *exam.Attempt {
	t.Helper()
	a := f.schedule(t)
	ctx := requestcontext.WithTime(context.Background(), inWindow)
	_, err := f.svc.Take(ctx, f.studentActor(), a.ID)
	require.NoError(t, err)
	scored, err := f.svc.EnterMarks(ctx, f.scorer, a.ID, marks)
	require.NoError(t, err)
	return scored
}

func TestSchedule(t *testing.T) {
	t.Run("snapshots the module thresholds", func(t *testing.T) {
		f := newFixture(t)
		a := f.schedule(t)
		assert.Equal(t, exam.StateScheduled, a.State)
		assert.Equal(t, 40.0, a.PassingMarks)
		assert.Equal(t, 100.0, a.TotalMarks)
	})

	t.Run("one active attempt per module", func(t *testing.T) {
		f := newFixture(t)
		f.schedule(t)
		_, err := f.svc.Schedule(context.Background(), f.manager, exam.Schedule{
			Student: f.student.ID, Module: f.module.ID,
			WindowOpens: windowOpens, WindowCloses: windowCloses,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("a cancelled attempt frees the slot", func(t *testing.T) {
		f := newFixture(t)
		a := f.schedule(t)
		_, err := f.svc.Cancel(context.Background(), domain.Actor{ID: f.manager.ID, Role: domain.RoleDirector, Tenant: f.manager.Tenant}, a.ID)
		require.NoError(t, err)
		f.schedule(t)
	})

	t.Run("window must close after it opens", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Schedule(context.Background(), f.manager, exam.Schedule{
			Student: f.student.ID, Module: f.module.ID,
			WindowOpens: windowCloses, WindowCloses: windowOpens,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestTake(t *testing.T) {
	t.Run("inside the window", func(t *testing.T) {
		f := newFixture(t)
		a := f.schedule(t)
		ctx := requestcontext.WithTime(context.Background(), inWindow)
		taken, err := f.svc.Take(ctx, f.studentActor(), a.ID)
		require.NoError(t, err)
		assert.Equal(t, exam.StateTaken, taken.State)
		require.NotNil(t, taken.TakenAt)
	})

	t.Run("before the window opens", func(t *testing.T) {
		f := newFixture(t)
		a := f.schedule(t)
		ctx := requestcontext.WithTime(context.Background(), windowOpens.Add(-time.Hour))
		_, err := f.svc.Take(ctx, f.studentActor(), a.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeWindowClosed))
	})

	t.Run("after the window closes", func(t *testing.T) {
		f := newFixture(t)
		a := f.schedule(t)
		ctx := requestcontext.WithTime(context.Background(), windowCloses.Add(time.Minute))
		_, err := f.svc.Take(ctx, f.studentActor(), a.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeWindowClosed))
	})

	t.Run("only the scheduled student", func(t *testing.T) {
		f := newFixture(t)
		a := f.schedule(t)
		tid := f.inst.ID
		other := domain.Actor{ID: domain.UserID(uuid.New()), Role: domain.RoleStudent, Tenant: &tid}
		ctx := requestcontext.WithTime(context.Background(), inWindow)
		_, err := f.svc.Take(ctx, other, a.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (f *fixture) addAnswerKey(t *testing.T) []exam.Question {
	t.Helper()
	inputs := []exam.QuestionInput{
		{Module: f.module.ID, Number: 1, Text: "Binary of 5?", CorrectOption: "b", Marks: 40},
		{Module: f.module.ID, Number: 2, Text: "Bits in a byte?", CorrectOption: "a", Marks: 30},
		{Module: f.module.ID, Number: 3, Text: "Base of hex?", CorrectOption: "d", Marks: 30},
	}
	questions := make([]exam.Question, 0, len(inputs))
	for _, in := range inputs {
		q, err := f.svc.AddQuestion(context.Background(), f.manager, in)
		require.NoError(t, err)
		questions = append(questions, *q)
	}
	return questions
}

func TestSubmit(t *testing.T) {
	t.Run("scores answers against the module's key", func(t *testing.T) {
		f := newFixture(t)
		qs := f.addAnswerKey(t)
		a := f.schedule(t)
		ctx := requestcontext.WithTime(context.Background(), inWindow)
		_, err := f.svc.Take(ctx, f.studentActor(), a.ID)
		require.NoError(t, err)

		scored, err := f.svc.Submit(ctx, f.studentActor(), a.ID, []exam.Answer{
			{Question: qs[0].ID, Option: "b"},
			{Question: qs[1].ID, Option: " A "}, // option match ignores case and padding
			{Question: qs[2].ID, Option: "c"},
		})
		require.NoError(t, err)
		assert.Equal(t, exam.StateScoredUnverified, scored.State)
		require.NotNil(t, scored.MarksObtained)
		assert.Equal(t, 70.0, *scored.MarksObtained)
		require.NotNil(t, scored.Passed)
		assert.True(t, *scored.Passed)
		assert.Nil(t, scored.ScoredBy)

		v, err := f.svc.Verify(ctx, f.manager, a.ID)
		require.NoError(t, err)
		assert.Equal(t, exam.StateVerified, v.State)
	})

	t.Run("unanswered questions score zero", func(t *testing.T) {
		f := newFixture(t)
		qs := f.addAnswerKey(t)
		a := f.schedule(t)
		ctx := requestcontext.WithTime(context.Background(), inWindow)
		_, err := f.svc.Take(ctx, f.studentActor(), a.ID)
		require.NoError(t, err)

		scored, err := f.svc.Submit(ctx, f.studentActor(), a.ID, []exam.Answer{
			{Question: qs[1].ID, Option: "a"},
		})
		require.NoError(t, err)
		require.NotNil(t, scored.MarksObtained)
		assert.Equal(t, 30.0, *scored.MarksObtained)
		require.NotNil(t, scored.Passed)
		assert.False(t, *scored.Passed)
	})

	t.Run("answers outside the module are rejected", func(t *testing.T) {
		f := newFixture(t)
		f.addAnswerKey(t)
		a := f.schedule(t)
		ctx := requestcontext.WithTime(context.Background(), inWindow)
		_, err := f.svc.Take(ctx, f.studentActor(), a.ID)
		require.NoError(t, err)

		_, err = f.svc.Submit(ctx, f.studentActor(), a.ID, []exam.Answer{
			{Question: domain.QuestionID(uuid.New()), Option: "a"},
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("a module without a key falls back to manual marks entry", func(t *testing.T) {
		f := newFixture(t)
		a := f.schedule(t)
		ctx := requestcontext.WithTime(context.Background(), inWindow)
		_, err := f.svc.Take(ctx, f.studentActor(), a.ID)
		require.NoError(t, err)

		_, err = f.svc.Submit(ctx, f.studentActor(), a.ID, nil)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		scored, err := f.svc.EnterMarks(ctx, f.scorer, a.ID, 55)
		require.NoError(t, err)
		assert.Equal(t, exam.StateScoredUnverified, scored.State)
	})

	t.Run("only the scheduled student may submit", func(t *testing.T) {
		f := newFixture(t)
		f.addAnswerKey(t)
		a := f.schedule(t)
		ctx := requestcontext.WithTime(context.Background(), inWindow)
		_, err := f.svc.Take(ctx, f.studentActor(), a.ID)
		require.NoError(t, err)

		tid := f.inst.ID
		other := domain.Actor{ID: domain.UserID(uuid.New()), Role: domain.RoleStudent, Tenant: &tid}
		_, err = f.svc.Submit(ctx, other, a.ID, nil)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("duplicate question numbers are rejected", func(t *testing.T) {
		f := newFixture(t)
		f.addAnswerKey(t)
		_, err := f.svc.AddQuestion(context.Background(), f.manager, exam.QuestionInput{
			Module: f.module.ID, Number: 2, Text: "Repeat", CorrectOption: "c", Marks: 10,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func TestEnterMarks(t *testing.T) {
	t.Run("derives the pass flag from the snapshot", func(t *testing.T) {
		f := newFixture(t)
		scored := f.takeAndScore(t, 40)
		assert.Equal(t, exam.StateScoredUnverified, scored.State)
		require.NotNil(t, scored.Passed)
		assert.True(t, *scored.Passed)
	})

	t.Run("below threshold fails", func(t *testing.T) {
		f := newFixture(t)
		scored := f.takeAndScore(t, 39.5)
		require.NotNil(t, scored.Passed)
		assert.False(t, *scored.Passed)
	})

	t.Run("marks outside the total are rejected", func(t *testing.T) {
		f := newFixture(t)
		a := f.schedule(t)
		ctx := requestcontext.WithTime(context.Background(), inWindow)
		_, err := f.svc.Take(ctx, f.studentActor(), a.ID)
		require.NoError(t, err)
		_, err = f.svc.EnterMarks(ctx, f.scorer, a.ID, 101)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("cannot score an attempt that was not taken", func(t *testing.T) {
		f := newFixture(t)
		a := f.schedule(t)
		_, err := f.svc.EnterMarks(context.Background(), f.scorer, a.ID, 50)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

func TestVerify(t *testing.T) {
	t.Run("verifies and emits an event", func(t *testing.T) {
		f := newFixture(t)
		scored := f.takeAndScore(t, 80)
		v, err := f.svc.Verify(context.Background(), f.manager, scored.ID)
		require.NoError(t, err)
		assert.Equal(t, exam.StateVerified, v.State)
		require.NotNil(t, v.VerifiedBy)
		assert.Equal(t, f.manager.ID, *v.VerifiedBy)

		all := f.outbox.All()
		require.Len(t, all, 1)
		assert.Equal(t, events.KindExamVerified, all[0].Kind)
	})

	t.Run("re-verification is a no-op keeping the first verifier", func(t *testing.T) {
		f := newFixture(t)
		scored := f.takeAndScore(t, 80)
		first, err := f.svc.Verify(context.Background(), f.manager, scored.ID)
		require.NoError(t, err)

		tid := f.inst.ID
		second := domain.Actor{ID: domain.UserID(uuid.New()), Role: domain.RoleDirector, Tenant: &tid}
		again, err := f.svc.Verify(context.Background(), second, scored.ID)
		require.NoError(t, err)
		assert.Equal(t, *first.VerifiedBy, *again.VerifiedBy)
		assert.Len(t, f.outbox.All(), 1)
	})

	t.Run("the scorer may not verify their own entry", func(t *testing.T) {
		f := newFixture(t)
		a := f.schedule(t)
		ctx := requestcontext.WithTime(context.Background(), inWindow)
		_, err := f.svc.Take(ctx, f.studentActor(), a.ID)
		require.NoError(t, err)

		tid := f.inst.ID
		scoringDirector := domain.Actor{ID: domain.UserID(uuid.New()), Role: domain.RoleDirector, Tenant: &tid}
		_, err = f.svc.EnterMarks(ctx, scoringDirector, a.ID, 70)
		require.NoError(t, err)

		_, err = f.svc.Verify(ctx, scoringDirector, a.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	tid := f.inst.ID
	director := domain.Actor{ID: domain.UserID(uuid.New()), Role: domain.RoleDirector, Tenant: &tid}

	t.Run("a scored attempt cannot be cancelled", func(t *testing.T) {
		scored := f.takeAndScore(t, 60)
		_, err := f.svc.Cancel(context.Background(), director, scored.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

func TestStudentResult(t *testing.T) {
	t.Run("unverified results are withheld", func(t *testing.T) {
		f := newFixture(t)
		scored := f.takeAndScore(t, 60)
		_, err := f.svc.StudentResult(context.Background(), f.studentActor(), scored.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotYetAvailable))
	})

	t.Run("verified results are released to the owner only", func(t *testing.T) {
		f := newFixture(t)
		scored := f.takeAndScore(t, 60)
		_, err := f.svc.Verify(context.Background(), f.manager, scored.ID)
		require.NoError(t, err)

		res, err := f.svc.StudentResult(context.Background(), f.studentActor(), scored.ID)
		require.NoError(t, err)
		assert.Equal(t, 60.0, res.MarksObtained)
		assert.True(t, res.Passed)

		tid := f.inst.ID
		other := domain.Actor{ID: domain.UserID(uuid.New()), Role: domain.RoleStudent, Tenant: &tid}
		_, err = f.svc.StudentResult(context.Background(), other, scored.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}
