// Package attendance keeps the daily staff register. One record per
// (staff, date); marking the same day again overwrites, because the
// register reflects the latest correction, not a history of edits.
package attendance

import (
	"time"

	"rtscore/pkg/domain"
	dErrors "rtscore/pkg/domain-errors"
)

// Status of one staff day.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusHalfDay Status = "half_day"
	StatusLeave   Status = "leave"
)

func (s Status) valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusHalfDay, StatusLeave:
		return true
	}
	return false
}

// Record is one staff day. Date is stored at day precision in UTC; the
// time-of-day component is always zero.
type Record struct {
	Staff    domain.StaffID
	Tenant   domain.TenantID
	Date     time.Time
	Status   Status
	MarkedBy domain.UserID
	MarkedAt time.Time
}

// Day truncates a timestamp to the register's day key.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Mark is the input to the Mark operation.
type Mark struct {
	Staff  domain.StaffID
	Date   time.Time
	Status Status
}

func (m Mark) validate() error {
	if !m.Status.valid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown attendance status %q", m.Status)
	}
	if m.Date.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "attendance date is required")
	}
	return nil
}

// MonthlySummary aggregates one staff member's month for payroll.
type MonthlySummary struct {
	Staff    domain.StaffID
	Month    int
	Year     int
	Present  int
	Absent   int
	HalfDays int
	Leave    int
}

// WorkedDays is the payroll weight: full days plus half credit for half
// days.
func (s MonthlySummary) WorkedDays() float64 {
	return float64(s.Present) + 0.5*float64(s.HalfDays)
}

// TotalMarked counts every marked day, for attendance-rate gating.
func (s MonthlySummary) TotalMarked() int {
	return s.Present + s.Absent + s.HalfDays + s.Leave
}
