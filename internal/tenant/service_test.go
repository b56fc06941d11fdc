package tenant

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rtscore/pkg/domain"
	dErrors "rtscore/pkg/domain-errors"
)

func superAdmin() domain.Actor {
	return domain.Actor{ID: domain.UserID(uuid.New()), Role: domain.RoleSuperAdmin}
}

func directorOf(t domain.TenantID) domain.Actor {
	return domain.Actor{ID: domain.UserID(uuid.New()), Role: domain.RoleDirector, Tenant: &t}
}

func TestCreateInstitution(t *testing.T) {
	svc := NewService(NewInMemory())
	ctx := context.Background()

	t.Run("derives initials and code from the name", func(t *testing.T) {
		inst, err := svc.Create(ctx, superAdmin(), "Rajtech Computer Center", "NAL")
		require.NoError(t, err)
		assert.Equal(t, "RCC", inst.Initials)
		assert.Equal(t, "RAJ", inst.Code)
		assert.Equal(t, "NAL", inst.DistrictCode)
	})

	t.Run("rejects non-super_admin", func(t *testing.T) {
		tid := domain.TenantID(uuid.New())
		_, err := svc.Create(ctx, directorOf(tid), "Another Center", "PAT")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		_, err := svc.Create(ctx, superAdmin(), "Rajtech Computer Center", "NAL")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("rejects bad district codes", func(t *testing.T) {
		_, err := svc.Create(ctx, superAdmin(), "Valid Name Here", "X")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestGetInstitutionScoping(t *testing.T) {
	svc := NewService(NewInMemory())
	ctx := context.Background()

	inst, err := svc.Create(ctx, superAdmin(), "Patna Tech Institute", "PAT")
	require.NoError(t, err)

	t.Run("own director can read", func(t *testing.T) {
		got, err := svc.Get(ctx, directorOf(inst.ID), inst.ID)
		require.NoError(t, err)
		assert.Equal(t, inst.Name, got.Name)
	})

	t.Run("foreign director gets scope violation, not not-found", func(t *testing.T) {
		_, err := svc.Get(ctx, directorOf(domain.TenantID(uuid.New())), inst.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeScopeViolation))
	})
}

func TestSettings(t *testing.T) {
	svc := NewService(NewInMemory())
	ctx := context.Background()

	inst, err := svc.Create(ctx, superAdmin(), "Gaya Computer Academy", "GAY")
	require.NoError(t, err)

	t.Run("defaults apply before any override", func(t *testing.T) {
		settings, err := svc.Settings(ctx, inst.ID)
		require.NoError(t, err)
		assert.False(t, settings.AttendanceGating)
		assert.Equal(t, DefaultAttendanceThreshold, settings.AttendanceThreshold)
	})

	t.Run("director may override", func(t *testing.T) {
		err := svc.UpdateSettings(ctx, directorOf(inst.ID), inst.ID, Settings{AttendanceGating: true, AttendanceThreshold: 80})
		require.NoError(t, err)

		settings, err := svc.Settings(ctx, inst.ID)
		require.NoError(t, err)
		assert.True(t, settings.AttendanceGating)
		assert.Equal(t, 80.0, settings.AttendanceThreshold)
	})

	t.Run("threshold outside 0-100 is rejected", func(t *testing.T) {
		err := svc.UpdateSettings(ctx, directorOf(inst.ID), inst.ID, Settings{AttendanceThreshold: 120})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("accountant may not override", func(t *testing.T) {
		tid := inst.ID
		accountant := domain.Actor{ID: domain.UserID(uuid.New()), Role: domain.RoleAccountant, Tenant: &tid}
		err := svc.UpdateSettings(ctx, accountant, inst.ID, Settings{AttendanceThreshold: 60})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}
