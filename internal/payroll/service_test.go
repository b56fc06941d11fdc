package payroll

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtscore/internal/attendance"
	"rtscore/internal/staff"
	"rtscore/pkg/domain"
	dErrors "rtscore/pkg/domain-errors"
)

type fixture struct {
	svc        *Service
	staffStore *staff.InMemory
	register   *attendance.Service
	member     *staff.Member
	accountant domain.Actor
	director   domain.Actor
	manager    domain.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tenantID := domain.TenantID(uuid.New())
	staffStore := staff.NewInMemory()
	member := &staff.Member{
		ID:        domain.StaffID(uuid.New()),
		Tenant:    tenantID,
		FullName:  "Sunil Kumar",
		Position:  "Instructor",
		DailyRate: 500,
	}
	require.NoError(t, staffStore.Create(context.Background(), member))

	register := attendance.NewService(attendance.NewInMemory(), staffStore)
	return &fixture{
		svc:        NewService(NewInMemory(), staffStore, register),
		staffStore: staffStore,
		register:   register,
		member:     member,
		accountant: domain.Actor{ID: domain.UserID(uuid.New()), Role: domain.RoleAccountant, Tenant: &tenantID},
		director:   domain.Actor{ID: domain.UserID(uuid.New()), Role: domain.RoleDirector, Tenant: &tenantID},
		manager:    domain.Actor{ID: domain.UserID(uuid.New()), Role: domain.RoleStaffManager, Tenant: &tenantID},
	}
}

func (f *fixture) mark(t *testing.T, day int, status attendance.Status) {
	t.Helper()
	_, err := f.register.MarkDay(context.Background(), f.manager, attendance.Mark{
		Staff: f.member.ID, Date: time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC), Status: status,
	})
	require.NoError(t, err)
}

func TestCompute(t *testing.T) {
	t.Run("rate 500, 20 present, 2 half days", func(t *testing.T) {
		f := newFixture(t)
		for day := 1; day <= 20; day++ {
			f.mark(t, day, attendance.StatusPresent)
		}
		f.mark(t, 21, attendance.StatusHalfDay)
		f.mark(t, 22, attendance.StatusHalfDay)
		f.mark(t, 23, attendance.StatusAbsent)

		p, err := f.svc.Compute(context.Background(), f.accountant, f.member.ID, 1, 2026)
		require.NoError(t, err)
		assert.Equal(t, 20, p.PresentDays)
		assert.Equal(t, 2, p.HalfDays)
		assert.Equal(t, 1, p.AbsentDays)
		assert.Equal(t, 10500.0, p.Gross)
	})

	t.Run("an empty month computes to zero", func(t *testing.T) {
		f := newFixture(t)
		p, err := f.svc.Compute(context.Background(), f.accountant, f.member.ID, 3, 2026)
		require.NoError(t, err)
		assert.Equal(t, 0.0, p.Gross)
	})

	t.Run("recomputing an unfinalized period replaces totals", func(t *testing.T) {
		f := newFixture(t)
		f.mark(t, 5, attendance.StatusPresent)
		p, err := f.svc.Compute(context.Background(), f.accountant, f.member.ID, 1, 2026)
		require.NoError(t, err)
		assert.Equal(t, 500.0, p.Gross)

		f.mark(t, 6, attendance.StatusPresent)
		p, err = f.svc.Compute(context.Background(), f.accountant, f.member.ID, 1, 2026)
		require.NoError(t, err)
		assert.Equal(t, 1000.0, p.Gross)
	})

	t.Run("a finalized period rejects recomputation", func(t *testing.T) {
		f := newFixture(t)
		f.mark(t, 5, attendance.StatusPresent)
		_, err := f.svc.Compute(context.Background(), f.accountant, f.member.ID, 1, 2026)
		require.NoError(t, err)
		require.NoError(t, f.svc.Finalize(context.Background(), f.director, f.member.ID, 1, 2026))

		_, err = f.svc.Compute(context.Background(), f.accountant, f.member.ID, 1, 2026)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyFinalized))
	})

	t.Run("a rate edit after finalization does not reach the locked month", func(t *testing.T) {
		f := newFixture(t)
		f.mark(t, 5, attendance.StatusPresent)
		_, err := f.svc.Compute(context.Background(), f.accountant, f.member.ID, 1, 2026)
		require.NoError(t, err)
		require.NoError(t, f.svc.Finalize(context.Background(), f.director, f.member.ID, 1, 2026))

		require.NoError(t, f.staffStore.UpdateDailyRate(context.Background(), f.member.ID, 700))

		locked, err := f.svc.Get(context.Background(), f.director, f.member.ID, 1, 2026)
		require.NoError(t, err)
		assert.Equal(t, 500.0, locked.DailyRate)

		// The next month picks up the new rate independently.
		_, err = f.register.MarkDay(context.Background(), f.manager, attendance.Mark{
			Staff: f.member.ID, Date: time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC), Status: attendance.StatusPresent,
		})
		require.NoError(t, err)
		next, err := f.svc.Compute(context.Background(), f.accountant, f.member.ID, 2, 2026)
		require.NoError(t, err)
		assert.Equal(t, 700.0, next.Gross)
	})

	t.Run("accountants may not finalize", func(t *testing.T) {
		f := newFixture(t)
		f.mark(t, 5, attendance.StatusPresent)
		_, err := f.svc.Compute(context.Background(), f.accountant, f.member.ID, 1, 2026)
		require.NoError(t, err)

		err = f.svc.Finalize(context.Background(), f.accountant, f.member.ID, 1, 2026)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("foreign accountant is blocked", func(t *testing.T) {
		f := newFixture(t)
		foreign := domain.TenantID(uuid.New())
		actor := domain.Actor{ID: domain.UserID(uuid.New()), Role: domain.RoleAccountant, Tenant: &foreign}
		_, err := f.svc.Compute(context.Background(), actor, f.member.ID, 1, 2026)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeScopeViolation))
	})
}
