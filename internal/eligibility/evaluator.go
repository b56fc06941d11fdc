// Package eligibility decides certificate readiness. The evaluator is a
// read-only AND over independent conditions and it enumerates every failing
// reason, not just the first, so the front desk can tell the student
// everything that still stands in the way.
package eligibility

import (
	"context"
	"fmt"

	"rtscore/internal/course"
	"rtscore/internal/exam"
	"rtscore/internal/ledger"
	"rtscore/internal/tenant"
	"rtscore/pkg/domain"
	dErrors "rtscore/pkg/domain-errors"
)

// Reason codes carried in the evaluation result.
const (
	ReasonModuleUnverified    = "module_unverified"
	ReasonModuleFailed        = "module_failed"
	ReasonOutstandingBalance  = "outstanding_balance"
	ReasonAttendanceBelowGate = "attendance_below_threshold"
)

// Reason is one failing condition, human-readable detail included.
type Reason struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// Evaluation is the evaluator's verdict. Eligible is true iff Reasons is
// empty.
type Evaluation struct {
	Student  domain.StudentID `json:"student_id"`
	Course   domain.CourseID  `json:"course_id"`
	Eligible bool             `json:"eligible"`
	Reasons  []Reason         `json:"reasons,omitempty"`
}

// Catalog lists the course's modules.
type Catalog interface {
	ListModules(ctx context.Context, c domain.CourseID) ([]course.Module, error)
}

// ExamResults exposes the verified attempts the modules condition reads.
type ExamResults interface {
	VerifiedAttempts(ctx context.Context, student domain.StudentID) ([]exam.Attempt, error)
}

// BalanceSource recomputes the ledger position.
type BalanceSource interface {
	ComputeBalance(ctx context.Context, student domain.StudentID, c domain.CourseID) (ledger.Balance, error)
}

// SettingsSource reads the tenant's gating configuration.
type SettingsSource interface {
	Settings(ctx context.Context, id domain.TenantID) (tenant.Settings, error)
}

// AttendanceSource reports the student's attendance rate for the course and
// whether any days were marked.
type AttendanceSource interface {
	Percentage(ctx context.Context, student domain.StudentID, c domain.CourseID) (float64, bool, error)
}

// Evaluator combines the four sources. It never mutates state and is safe
// to call repeatedly; certificate issuance calls it again inside the
// issuing transaction.
type Evaluator struct {
	catalog    Catalog
	exams      ExamResults
	balances   BalanceSource
	settings   SettingsSource
	attendance AttendanceSource
}

func NewEvaluator(catalog Catalog, exams ExamResults, balances BalanceSource, settings SettingsSource, attendance AttendanceSource) *Evaluator {
	return &Evaluator{
		catalog:    catalog,
		exams:      exams,
		balances:   balances,
		settings:   settings,
		attendance: attendance,
	}
}

// IsCertificateEligible evaluates all conditions. A course with no active
// modules satisfies the modules condition vacuously; an empty attendance
// register satisfies the attendance condition, since there is nothing to
// gate on.
func (e *Evaluator) IsCertificateEligible(ctx context.Context, tenantID domain.TenantID, student domain.StudentID, courseID domain.CourseID) (Evaluation, error) {
	ev := Evaluation{Student: student, Course: courseID}

	modules, err := e.catalog.ListModules(ctx, courseID)
	if err != nil {
		return ev, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list modules")
	}
	attempts, err := e.exams.VerifiedAttempts(ctx, student)
	if err != nil {
		return ev, err
	}
	verified := make(map[domain.ModuleID]exam.Attempt, len(attempts))
	for _, a := range attempts {
		verified[a.Module] = a
	}

	for _, m := range modules {
		if !m.Active {
			continue
		}
		a, ok := verified[m.ID]
		if !ok {
			ev.Reasons = append(ev.Reasons, Reason{
				Code:   ReasonModuleUnverified,
				Detail: fmt.Sprintf("module %q has no verified result", m.Name),
			})
			continue
		}
		if a.Passed == nil || !*a.Passed {
			ev.Reasons = append(ev.Reasons, Reason{
				Code:   ReasonModuleFailed,
				Detail: fmt.Sprintf("module %q was not passed", m.Name),
			})
		}
	}

	balance, err := e.balances.ComputeBalance(ctx, student, courseID)
	if err != nil {
		return ev, err
	}
	if !balance.Settled() {
		ev.Reasons = append(ev.Reasons, Reason{
			Code:   ReasonOutstandingBalance,
			Detail: fmt.Sprintf("%.2f is still due", balance.Outstanding),
		})
	}

	settings, err := e.settings.Settings(ctx, tenantID)
	if err != nil {
		return ev, err
	}
	if settings.AttendanceGating {
		pct, marked, err := e.attendance.Percentage(ctx, student, courseID)
		if err != nil {
			return ev, err
		}
		if marked && pct < settings.AttendanceThreshold {
			ev.Reasons = append(ev.Reasons, Reason{
				Code:   ReasonAttendanceBelowGate,
				Detail: fmt.Sprintf("attendance %.1f%% is below the required %.1f%%", pct, settings.AttendanceThreshold),
			})
		}
	}

	ev.Eligible = len(ev.Reasons) == 0
	return ev, nil
}
