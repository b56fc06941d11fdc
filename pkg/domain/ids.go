// Package domain defines the typed identifiers and role vocabulary shared
// across the core. Each ID is a distinct type over uuid.UUID so the compiler
// rejects cross-entity mixups (passing a StudentID where a StaffID belongs).
package domain

import (
	"github.com/google/uuid"

	dErrors "rtscore/pkg/domain-errors"
)

type (
	// TenantID identifies an institution. Every scoped entity carries one.
	TenantID uuid.UUID

	// UserID identifies an actor (director, accountant, student, ...).
	UserID uuid.UUID

	StudentID     uuid.UUID
	CourseID      uuid.UUID
	ModuleID      uuid.UUID
	StaffID       uuid.UUID
	AttemptID     uuid.UUID
	QuestionID    uuid.UUID
	PaymentID     uuid.UUID
	CertificateID uuid.UUID
)

func (id TenantID) String() string      { return uuid.UUID(id).String() }
func (id UserID) String() string        { return uuid.UUID(id).String() }
func (id StudentID) String() string     { return uuid.UUID(id).String() }
func (id CourseID) String() string      { return uuid.UUID(id).String() }
func (id ModuleID) String() string      { return uuid.UUID(id).String() }
func (id StaffID) String() string       { return uuid.UUID(id).String() }
func (id AttemptID) String() string     { return uuid.UUID(id).String() }
func (id QuestionID) String() string    { return uuid.UUID(id).String() }
func (id PaymentID) String() string     { return uuid.UUID(id).String() }
func (id CertificateID) String() string { return uuid.UUID(id).String() }

func (id TenantID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id StudentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id CourseID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id StaffID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s is required", kind)
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s is not a valid UUID", kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s must not be the nil UUID", kind)
	}
	return u, nil
}

func ParseTenantID(raw string) (TenantID, error) {
	u, err := parseUUID(raw, "tenant id")
	return TenantID(u), err
}

func ParseUserID(raw string) (UserID, error) {
	u, err := parseUUID(raw, "user id")
	return UserID(u), err
}

func ParseStudentID(raw string) (StudentID, error) {
	u, err := parseUUID(raw, "student id")
	return StudentID(u), err
}

func ParseCourseID(raw string) (CourseID, error) {
	u, err := parseUUID(raw, "course id")
	return CourseID(u), err
}

func ParseModuleID(raw string) (ModuleID, error) {
	u, err := parseUUID(raw, "module id")
	return ModuleID(u), err
}

func ParseStaffID(raw string) (StaffID, error) {
	u, err := parseUUID(raw, "staff id")
	return StaffID(u), err
}

func ParseAttemptID(raw string) (AttemptID, error) {
	u, err := parseUUID(raw, "attempt id")
	return AttemptID(u), err
}

func ParseQuestionID(raw string) (QuestionID, error) {
	u, err := parseUUID(raw, "question id")
	return QuestionID(u), err
}
