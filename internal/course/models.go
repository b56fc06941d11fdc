// Package course holds the catalog: courses, their fees, and the modules a
// student must pass for certification. The ledger reads the fee, the exam
// engine reads module passing marks, and the eligibility evaluator walks
// the module list.
package course

import (
	"time"

	"rtscore/pkg/domain"
)

// Course is tenant-owned. Fee is in the institution's currency minor-free
// unit (rupees); payments against the course are summed against this.
type Course struct {
	ID             domain.CourseID
	Tenant         domain.TenantID
	Name           string
	Fee            float64
	DurationMonths int
	CreatedAt      time.Time
}

// Module is one exam unit within a course. PassingMarks is the threshold
// snapshotted onto attempts at scheduling time; editing it later never
// changes already-scheduled attempts.
type Module struct {
	ID           domain.ModuleID
	Course       domain.CourseID
	Number       int
	Name         string
	TotalMarks   float64
	PassingMarks float64
	Active       bool
}
