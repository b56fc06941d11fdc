package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"rtscore/internal/course"
	"rtscore/internal/enrollment"
	"rtscore/internal/events"
	"rtscore/internal/ledger"
	"rtscore/internal/ledger/mocks"
	"rtscore/internal/sequence"
	"rtscore/internal/tenant"
	"rtscore/pkg/domain"
	dErrors "rtscore/pkg/domain-errors"
	"rtscore/pkg/platform/tx"
	"rtscore/pkg/requestcontext"
)

type fixture struct {
	svc        *ledger.Service
	outbox     *events.InMemory
	inst       *tenant.Institution
	accountant domain.Actor
	student    *enrollment.Student
	course     *course.Course
}

func newFixture(t *testing.T, store ledger.Store) *fixture {
	t.Helper()
	ctx := requestcontext.WithTime(context.Background(), time.Date(2025, 12, 5, 10, 0, 0, 0, time.UTC))

	tenantStore := tenant.NewInMemory()
	tenants := tenant.NewService(tenantStore)
	superAdmin := domain.Actor{ID: domain.UserID(uuid.New()), Role: domain.RoleSuperAdmin}
	inst, err := tenants.Create(ctx, superAdmin, "Rajtech Computer Center", "NAL")
	require.NoError(t, err)

	catalog := course.NewInMemory()
	c := &course.Course{
		ID:             domain.CourseID(uuid.New()),
		Tenant:         inst.ID,
		Name:           "Diploma in Computer Applications",
		Fee:            12000,
		DurationMonths: 12,
		CreatedAt:      time.Now(),
	}
	require.NoError(t, catalog.CreateCourse(ctx, c))

	students := enrollment.NewInMemory()
	registrar := enrollment.NewService(students, catalog, tenants, sequence.NewAllocator(sequence.NewInMemory()), tx.NopRunner{})
	tid := inst.ID
	director := domain.Actor{ID: domain.UserID(uuid.New()), Role: domain.RoleDirector, Tenant: &tid}
	st, err := registrar.Register(ctx, director, enrollment.Registration{Tenant: inst.ID, FullName: "Asha Kumari"})
	require.NoError(t, err)
	_, err = registrar.Enroll(ctx, director, st.ID, c.ID)
	require.NoError(t, err)

	outbox := events.NewInMemory()
	svc := ledger.NewService(store, students, catalog, tenantStore, sequence.NewAllocator(sequence.NewInMemory()), outbox, tx.NopRunner{})

	return &fixture{
		svc:        svc,
		outbox:     outbox,
		inst:       inst,
		accountant: domain.Actor{ID: domain.UserID(uuid.New()), Role: domain.RoleAccountant, Tenant: &tid},
		student:    st,
		course:     c,
	}
}

func testCtx() context.Context {
	return requestcontext.WithTime(context.Background(), time.Date(2025, 12, 5, 10, 0, 0, 0, time.UTC))
}

func TestRecordPayment(t *testing.T) {
	t.Run("mints year-scoped receipt numbers", func(t *testing.T) {
		f := newFixture(t, ledger.NewInMemory())
		ctx := testCtx()

		rec, err := f.svc.RecordPayment(ctx, f.accountant, ledger.Payment{
			Student: f.student.ID, Course: f.course.ID, Amount: 5000, Method: ledger.MethodCash,
		})
		require.NoError(t, err)
		assert.Equal(t, "RCT-RAJ-2025-0001", rec.ReceiptNo)

		rec2, err := f.svc.RecordPayment(ctx, f.accountant, ledger.Payment{
			Student: f.student.ID, Course: f.course.ID, Amount: 2000, Method: ledger.MethodCash,
		})
		require.NoError(t, err)
		assert.Equal(t, "RCT-RAJ-2025-0002", rec2.ReceiptNo)
	})

	t.Run("rejects a zero amount", func(t *testing.T) {
		f := newFixture(t, ledger.NewInMemory())
		_, err := f.svc.RecordPayment(testCtx(), f.accountant, ledger.Payment{
			Student: f.student.ID, Course: f.course.ID, Amount: 0, Method: ledger.MethodCash,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("upi without a reference fails with the dedicated code", func(t *testing.T) {
		f := newFixture(t, ledger.NewInMemory())
		_, err := f.svc.RecordPayment(testCtx(), f.accountant, ledger.Payment{
			Student: f.student.ID, Course: f.course.ID, Amount: 5000, Method: ledger.MethodUPI,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeMissingTransactionReference))
	})

	t.Run("cash never needs a reference", func(t *testing.T) {
		f := newFixture(t, ledger.NewInMemory())
		_, err := f.svc.RecordPayment(testCtx(), f.accountant, ledger.Payment{
			Student: f.student.ID, Course: f.course.ID, Amount: 5000, Method: ledger.MethodCash,
		})
		require.NoError(t, err)
	})

	t.Run("amount is validated before the reference", func(t *testing.T) {
		f := newFixture(t, ledger.NewInMemory())
		_, err := f.svc.RecordPayment(testCtx(), f.accountant, ledger.Payment{
			Student: f.student.ID, Course: f.course.ID, Amount: -10, Method: ledger.MethodUPI,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("unknown student is not found", func(t *testing.T) {
		f := newFixture(t, ledger.NewInMemory())
		_, err := f.svc.RecordPayment(testCtx(), f.accountant, ledger.Payment{
			Student: domain.StudentID(uuid.New()), Course: f.course.ID, Amount: 100, Method: ledger.MethodCash,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("foreign accountant gets a scope violation", func(t *testing.T) {
		f := newFixture(t, ledger.NewInMemory())
		foreign := domain.TenantID(uuid.New())
		actor := domain.Actor{ID: domain.UserID(uuid.New()), Role: domain.RoleAccountant, Tenant: &foreign}
		_, err := f.svc.RecordPayment(testCtx(), actor, ledger.Payment{
			Student: f.student.ID, Course: f.course.ID, Amount: 100, Method: ledger.MethodCash,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeScopeViolation))
	})

	t.Run("appends an outbox event with the receipt", func(t *testing.T) {
		f := newFixture(t, ledger.NewInMemory())
		_, err := f.svc.RecordPayment(testCtx(), f.accountant, ledger.Payment{
			Student: f.student.ID, Course: f.course.ID, Amount: 5000, Method: ledger.MethodCard, TransactionRef: "TXN-1",
		})
		require.NoError(t, err)
		all := f.outbox.All()
		require.Len(t, all, 1)
		assert.Equal(t, events.KindPaymentRecorded, all[0].Kind)
		assert.Contains(t, string(all[0].Payload), "RCT-RAJ-2025-0001")
	})

	t.Run("storage failure surfaces as internal", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := mocks.NewMockStore(ctrl)
		store.EXPECT().CreateRecord(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

		f := newFixture(t, store)
		_, err := f.svc.RecordPayment(testCtx(), f.accountant, ledger.Payment{
			Student: f.student.ID, Course: f.course.ID, Amount: 100, Method: ledger.MethodCash,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func TestRecordAdjustment(t *testing.T) {
	f := newFixture(t, ledger.NewInMemory())
	ctx := testCtx()

	t.Run("requires a note", func(t *testing.T) {
		_, err := f.svc.RecordAdjustment(ctx, f.accountant, ledger.Adjustment{
			Student: f.student.ID, Course: f.course.ID, Amount: 500,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("receptionist may not adjust", func(t *testing.T) {
		tid := f.inst.ID
		receptionist := domain.Actor{ID: domain.UserID(uuid.New()), Role: domain.RoleReceptionist, Tenant: &tid}
		_, err := f.svc.RecordAdjustment(ctx, receptionist, ledger.Adjustment{
			Student: f.student.ID, Course: f.course.ID, Amount: 500, Note: "discount",
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("signed adjustments move the balance both ways", func(t *testing.T) {
		_, err := f.svc.RecordAdjustment(ctx, f.accountant, ledger.Adjustment{
			Student: f.student.ID, Course: f.course.ID, Amount: 1000, Note: "festival discount",
		})
		require.NoError(t, err)
		_, err = f.svc.RecordAdjustment(ctx, f.accountant, ledger.Adjustment{
			Student: f.student.ID, Course: f.course.ID, Amount: -200, Note: "late fee",
		})
		require.NoError(t, err)

		b, err := f.svc.GetBalance(ctx, f.accountant, f.student.ID, f.course.ID)
		require.NoError(t, err)
		assert.Equal(t, 800.0, b.TotalAdjusted)
		assert.Equal(t, 12000.0-800.0, b.Outstanding)
	})
}

func TestGetBalance(t *testing.T) {
	f := newFixture(t, ledger.NewInMemory())
	ctx := testCtx()

	_, err := f.svc.RecordPayment(ctx, f.accountant, ledger.Payment{
		Student: f.student.ID, Course: f.course.ID, Amount: 5000, Method: ledger.MethodCash,
	})
	require.NoError(t, err)
	_, err = f.svc.RecordPayment(ctx, f.accountant, ledger.Payment{
		Student: f.student.ID, Course: f.course.ID, Amount: 7000, Method: ledger.MethodUPI, TransactionRef: "UPI-42",
	})
	require.NoError(t, err)

	t.Run("recomputes from the record set", func(t *testing.T) {
		b, err := f.svc.GetBalance(ctx, f.accountant, f.student.ID, f.course.ID)
		require.NoError(t, err)
		assert.Equal(t, 12000.0, b.TotalPaid)
		assert.Equal(t, 0.0, b.Outstanding)
		assert.True(t, b.Settled())
	})

	t.Run("a student reads only their own balance", func(t *testing.T) {
		tid := f.inst.ID
		self := domain.Actor{ID: domain.UserID(f.student.ID), Role: domain.RoleStudent, Tenant: &tid}
		_, err := f.svc.GetBalance(ctx, self, f.student.ID, f.course.ID)
		require.NoError(t, err)

		other := domain.Actor{ID: domain.UserID(uuid.New()), Role: domain.RoleStudent, Tenant: &tid}
		_, err = f.svc.GetBalance(ctx, other, f.student.ID, f.course.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}
