// Package payroll turns the month's attendance register into a salary
// figure. Computation is a pure aggregation; the only state it owns is the
// finalization lock that stops a later rate edit from rewriting salaries
// already paid out.
package payroll

import (
	"time"

	"rtscore/pkg/domain"
)

// Period is one staff member's computed month. Regenerating an unfinalized
// period replaces these totals wholesale; a finalized period is immutable.
type Period struct {
	Staff       domain.StaffID
	Tenant      domain.TenantID
	Month       int
	Year        int
	PresentDays int
	HalfDays    int
	AbsentDays  int
	LeaveDays   int
	DailyRate   float64
	Gross       float64
	Finalized   bool
	GeneratedBy domain.UserID
	GeneratedAt time.Time
}
