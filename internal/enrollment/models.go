// Package enrollment registers students and binds them to courses. The
// human-facing enrollment identifier is minted here, atomically with the
// student row, so an aborted registration never burns a number into a gap
// visible on paper records.
package enrollment

import (
	"strings"
	"time"

	"rtscore/pkg/domain"
	dErrors "rtscore/pkg/domain-errors"
)

// Student is the registered learner. EnrollmentID is the immutable
// RTS-prefixed identifier printed on receipts and certificates.
type Student struct {
	ID           domain.StudentID
	Tenant       domain.TenantID
	EnrollmentID string
	FullName     string
	GuardianName string
	Phone        string
	Batch        string
	RegisteredAt time.Time
	DeletedAt    *time.Time
}

// Deleted reports whether the student was soft-deleted. Deleted students
// stay queryable by identifier for historical receipts but reject new
// enrollments, payments and exams.
func (s *Student) Deleted() bool { return s.DeletedAt != nil }

// CourseEnrollment links a student to one course. A student may hold many,
// one per course.
type CourseEnrollment struct {
	Student    domain.StudentID
	Course     domain.CourseID
	EnrolledAt time.Time
}

// Registration is the input to Register. Batch is a free-form cohort label
// such as "2025-morning".
type Registration struct {
	Tenant       domain.TenantID
	FullName     string
	GuardianName string
	Phone        string
	Batch        string
}

func (r Registration) validate() error {
	if r.Tenant.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "registration requires an institution")
	}
	if strings.TrimSpace(r.FullName) == "" {
		return dErrors.New(dErrors.CodeValidation, "student name is required")
	}
	return nil
}
