// Package tenant owns institutions and their per-tenant configuration.
// Every other entity in the system hangs off an institution; the scope
// resolver and the identifier codec both read the fields defined here.
package tenant

import (
	"strings"
	"time"

	"rtscore/internal/identifier"
	"rtscore/pkg/domain"
	dErrors "rtscore/pkg/domain-errors"
)

// Institution is the tenant aggregate.
//
// Invariants:
//   - Name is non-empty and at most 128 characters
//   - DistrictCode is 2-5 uppercase letters
//   - DistrictCode, Initials and Code are immutable once any identifier has
//     been issued against them: changing them would break parseability of
//     every historical ID
type Institution struct {
	ID           domain.TenantID
	Name         string
	DistrictCode string

	// Initials and Code are derived from Name at creation and frozen.
	// Initials feed enrollment identifiers, Code feeds receipt numbers.
	Initials string
	Code     string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewInstitution derives the identifier fields and validates invariants.
func NewInstitution(id domain.TenantID, name, districtCode string, now time.Time) (*Institution, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "institution name is required")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeValidation, "institution name must be at most 128 characters")
	}
	districtCode = strings.ToUpper(strings.TrimSpace(districtCode))
	if len(districtCode) < 2 || len(districtCode) > 5 {
		return nil, dErrors.New(dErrors.CodeValidation, "district code must be 2-5 letters")
	}
	initials := identifier.InstitutionInitials(name)
	if initials == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "institution name must contain at least one word")
	}
	return &Institution{
		ID:           id,
		Name:         name,
		DistrictCode: districtCode,
		Initials:     initials,
		Code:         identifier.InstitutionCode(name),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// DefaultAttendanceThreshold applies when a tenant has not overridden it.
const DefaultAttendanceThreshold = 75.0

// Settings holds the soft business rules that vary by institution. They are
// configuration values with defined defaults, not hard-coded constants.
type Settings struct {
	// AttendanceGating enables the attendance condition in certificate
	// eligibility.
	AttendanceGating bool

	// AttendanceThreshold is the minimum attendance percentage when gating
	// is enabled.
	AttendanceThreshold float64
}

// DefaultSettings is what a tenant gets before any override is stored.
func DefaultSettings() Settings {
	return Settings{AttendanceGating: false, AttendanceThreshold: DefaultAttendanceThreshold}
}

func (s Settings) Validate() error {
	if s.AttendanceThreshold < 0 || s.AttendanceThreshold > 100 {
		return dErrors.New(dErrors.CodeValidation, "attendance threshold must be within 0-100")
	}
	return nil
}
