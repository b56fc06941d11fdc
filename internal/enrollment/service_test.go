package enrollment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtscore/internal/course"
	"rtscore/internal/sequence"
	"rtscore/internal/tenant"
	"rtscore/pkg/domain"
	dErrors "rtscore/pkg/domain-errors"
	"rtscore/pkg/platform/tx"
	"rtscore/pkg/requestcontext"
)

type fixture struct {
	svc      *Service
	tenants  *tenant.Service
	catalog  *course.InMemory
	inst     *tenant.Institution
	director domain.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tenants := tenant.NewService(tenant.NewInMemory())
	superAdmin := domain.Actor{ID: domain.UserID(uuid.New()), Role: domain.RoleSuperAdmin}
	inst, err := tenants.Create(context.Background(), superAdmin, "Rajtech Computer Center", "NAL")
	require.NoError(t, err)

	catalog := course.NewInMemory()
	svc := NewService(
		NewInMemory(),
		catalog,
		tenants,
		sequence.NewAllocator(sequence.NewInMemory()),
		tx.NopRunner{},
	)
	tid := inst.ID
	return &fixture{
		svc:      svc,
		tenants:  tenants,
		catalog:  catalog,
		inst:     inst,
		director: domain.Actor{ID: domain.UserID(uuid.New()), Role: domain.RoleDirector, Tenant: &tid},
	}
}

func (f *fixture) addCourse(t *testing.T, tenantID domain.TenantID, fee float64) *course.Course {
	t.Helper()
	c := &course.Course{
		ID:             domain.CourseID(uuid.New()),
		Tenant:         tenantID,
		Name:           "Diploma in Computer Applications",
		Fee:            fee,
		DurationMonths: 12,
		CreatedAt:      time.Now(),
	}
	require.NoError(t, f.catalog.CreateCourse(context.Background(), c))
	return c
}

func TestRegister(t *testing.T) {
	f := newFixture(t)
	ctx := requestcontext.WithTime(context.Background(), time.Date(2025, 12, 5, 10, 0, 0, 0, time.UTC))

	t.Run("mints sequential identifiers within the month", func(t *testing.T) {
		first, err := f.svc.Register(ctx, f.director, Registration{Tenant: f.inst.ID, FullName: "Asha Kumari"})
		require.NoError(t, err)
		assert.Equal(t, "RTS-NAL-RCC-12-2025-0001", first.EnrollmentID)

		second, err := f.svc.Register(ctx, f.director, Registration{Tenant: f.inst.ID, FullName: "Ravi Prakash"})
		require.NoError(t, err)
		assert.Equal(t, "RTS-NAL-RCC-12-2025-0002", second.EnrollmentID)
	})

	t.Run("a new month starts a new counter", func(t *testing.T) {
		jan := requestcontext.WithTime(context.Background(), time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC))
		st, err := f.svc.Register(jan, f.director, Registration{Tenant: f.inst.ID, FullName: "Meena Devi"})
		require.NoError(t, err)
		assert.Equal(t, "RTS-NAL-RCC-01-2026-0001", st.EnrollmentID)
	})

	t.Run("rejects registration into a foreign institution", func(t *testing.T) {
		foreign := domain.TenantID(uuid.New())
		_, err := f.svc.Register(ctx, f.director, Registration{Tenant: foreign, FullName: "Someone Else"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeScopeViolation))
	})

	t.Run("rejects a blank name", func(t *testing.T) {
		_, err := f.svc.Register(ctx, f.director, Registration{Tenant: f.inst.ID, FullName: "   "})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("students may not register students", func(t *testing.T) {
		tid := f.inst.ID
		studentActor := domain.Actor{ID: domain.UserID(uuid.New()), Role: domain.RoleStudent, Tenant: &tid}
		_, err := f.svc.Register(ctx, studentActor, Registration{Tenant: f.inst.ID, FullName: "Self Signup"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func TestEnroll(t *testing.T) {
	f := newFixture(t)
	ctx := requestcontext.WithTime(context.Background(), time.Date(2025, 12, 5, 10, 0, 0, 0, time.UTC))

	st, err := f.svc.Register(ctx, f.director, Registration{Tenant: f.inst.ID, FullName: "Asha Kumari"})
	require.NoError(t, err)
	c := f.addCourse(t, f.inst.ID, 12000)

	t.Run("binds student to course once", func(t *testing.T) {
		_, err := f.svc.Enroll(ctx, f.director, st.ID, c.ID)
		require.NoError(t, err)

		_, err = f.svc.Enroll(ctx, f.director, st.ID, c.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("rejects a course from another institution", func(t *testing.T) {
		foreignCourse := f.addCourse(t, domain.TenantID(uuid.New()), 8000)
		_, err := f.svc.Enroll(ctx, f.director, st.ID, foreignCourse.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeScopeViolation))
	})
}

func TestLookupAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := requestcontext.WithTime(context.Background(), time.Date(2025, 12, 5, 10, 0, 0, 0, time.UTC))

	st, err := f.svc.Register(ctx, f.director, Registration{Tenant: f.inst.ID, FullName: "Asha Kumari"})
	require.NoError(t, err)

	t.Run("lookup by identifier", func(t *testing.T) {
		got, err := f.svc.Lookup(ctx, f.director, st.EnrollmentID)
		require.NoError(t, err)
		assert.Equal(t, st.ID, got.ID)
	})

	t.Run("lookup rejects malformed identifiers before touching storage", func(t *testing.T) {
		_, err := f.svc.Lookup(ctx, f.director, "RTS-NAL-RCC-13-2025-0001")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("soft delete keeps lookup but blocks enrollment", func(t *testing.T) {
		require.NoError(t, f.svc.Delete(ctx, f.director, st.ID))

		got, err := f.svc.Lookup(ctx, f.director, st.EnrollmentID)
		require.NoError(t, err)
		assert.True(t, got.Deleted())

		c := f.addCourse(t, f.inst.ID, 5000)
		_, err = f.svc.Enroll(ctx, f.director, st.ID, c.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("receptionist may not delete", func(t *testing.T) {
		st2, err := f.svc.Register(ctx, f.director, Registration{Tenant: f.inst.ID, FullName: "Ravi Prakash"})
		require.NoError(t, err)
		tid := f.inst.ID
		receptionist := domain.Actor{ID: domain.UserID(uuid.New()), Role: domain.RoleReceptionist, Tenant: &tid}
		err = f.svc.Delete(ctx, receptionist, st2.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}
