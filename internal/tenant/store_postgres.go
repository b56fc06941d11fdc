package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"rtscore/pkg/domain"
	"rtscore/pkg/platform/sentinel"
	txcontext "rtscore/pkg/platform/tx"
)

// Postgres persists institutions in the institutions and tenant_settings
// tables.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Create(ctx context.Context, inst *Institution) error {
	const query = `
		INSERT INTO institutions (id, name, district_code, initials, code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(inst.ID), inst.Name, inst.DistrictCode, inst.Initials, inst.Code,
		inst.CreatedAt, inst.UpdatedAt,
	)
	if err != nil {
		if txcontext.IsUniqueViolation(err) {
			return sentinel.ErrDuplicate
		}
		return fmt.Errorf("insert institution: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.TenantID) (*Institution, error) {
	const query = `
		SELECT id, name, district_code, initials, code, created_at, updated_at
		FROM institutions
		WHERE id = $1
	`
	var inst Institution
	var rawID uuid.UUID
	err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(id)).Scan(
		&rawID, &inst.Name, &inst.DistrictCode, &inst.Initials, &inst.Code,
		&inst.CreatedAt, &inst.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find institution: %w", err)
	}
	inst.ID = domain.TenantID(rawID)
	return &inst, nil
}

func (s *Postgres) SaveSettings(ctx context.Context, id domain.TenantID, settings Settings) error {
	const query = `
		INSERT INTO tenant_settings (tenant_id, attendance_gating, attendance_threshold)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id)
		DO UPDATE SET attendance_gating = $2, attendance_threshold = $3
	`
	_, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(id), settings.AttendanceGating, settings.AttendanceThreshold)
	if err != nil {
		return fmt.Errorf("save tenant settings: %w", err)
	}
	return nil
}

func (s *Postgres) FindSettings(ctx context.Context, id domain.TenantID) (Settings, error) {
	const query = `
		SELECT attendance_gating, attendance_threshold
		FROM tenant_settings
		WHERE tenant_id = $1
	`
	var settings Settings
	err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(id)).Scan(
		&settings.AttendanceGating, &settings.AttendanceThreshold,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Settings{}, sentinel.ErrNotFound
		}
		return Settings{}, fmt.Errorf("find tenant settings: %w", err)
	}
	return settings, nil
}
