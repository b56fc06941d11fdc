// Package certificate issues and verifies course certificates. Issuance
// re-runs the eligibility evaluator inside the issuing transaction, closing
// the race between "eligible now" and "issue now".
package certificate

import (
	"time"

	"rtscore/pkg/domain"
)

// Certificate is one issued certificate. Immutable once created; there is
// no revocation path, only the audit trail of who issued it.
type Certificate struct {
	ID       domain.CertificateID
	Tenant   domain.TenantID
	Student  domain.StudentID
	Course   domain.CourseID
	Number   string
	IssuedBy domain.UserID
	IssuedAt time.Time
}

// VerificationPayload is the public data contract behind the QR code on the
// printed certificate. Rendering is someone else's job; this is only the
// data.
type VerificationPayload struct {
	Number       string    `json:"number"`
	StudentName  string    `json:"student_name"`
	EnrollmentID string    `json:"enrollment_id"`
	CourseName   string    `json:"course_name"`
	Institution  string    `json:"institution"`
	IssuedAt     time.Time `json:"issued_at"`
}
