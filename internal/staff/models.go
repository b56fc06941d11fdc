// Package staff holds staff member records: the daily rate consumed by
// payroll and the tenant binding consumed by scope checks.
package staff

import (
	"time"

	"rtscore/pkg/domain"
)

// Member is a staff record. DailyRate is the current per-day earning set by
// the director; payroll reads it at computation time rather than
// snapshotting it historically, which is why finalized periods are locked
// against recomputation.
type Member struct {
	ID          domain.StaffID
	Tenant      domain.TenantID
	FullName    string
	Position    string
	DailyRate   float64
	JoiningDate time.Time
	CreatedAt   time.Time
}
