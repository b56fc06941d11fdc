// Package ledger is the append-only record of money against a student's
// course. Balances are never stored; they are recomputed from the record
// set on every read, so there is no cached figure to drift.
package ledger

import (
	"time"

	"rtscore/pkg/domain"
	dErrors "rtscore/pkg/domain-errors"
)

// Method is the payment channel. Every method except cash leaves a trail in
// an external system, so every method except cash requires a transaction
// reference.
type Method string

const (
	MethodCash         Method = "cash"
	MethodOnline       Method = "online"
	MethodUPI          Method = "upi"
	MethodCard         Method = "card"
	MethodBankTransfer Method = "bank_transfer"
)

func (m Method) valid() bool {
	switch m {
	case MethodCash, MethodOnline, MethodUPI, MethodCard, MethodBankTransfer:
		return true
	}
	return false
}

// requiresReference reports whether the method must carry an external
// transaction reference.
func (m Method) requiresReference() bool {
	return m != MethodCash
}

// Kind separates customer payments from accountant adjustments. Both land
// in the same record set and both feed the balance.
type Kind string

const (
	KindPayment    Kind = "payment"
	KindAdjustment Kind = "adjustment"
)

// Record is one immutable ledger line. Corrections are new offsetting
// records, never edits; ReceiptNo is set only for payments.
type Record struct {
	ID             domain.PaymentID
	Tenant         domain.TenantID
	Student        domain.StudentID
	Course         domain.CourseID
	Kind           Kind
	Amount         float64
	Method         Method
	TransactionRef string
	ReceiptNo      string
	Note           string
	RecordedBy     domain.UserID
	RecordedAt     time.Time
}

// Payment is the input to RecordPayment.
type Payment struct {
	Student        domain.StudentID
	Course         domain.CourseID
	Amount         float64
	Method         Method
	TransactionRef string
	Note           string
}

func (p Payment) validate() error {
	if p.Amount <= 0 {
		return dErrors.Newf(dErrors.CodeValidation, "payment amount must be positive, got %.2f", p.Amount)
	}
	if !p.Method.valid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown payment method %q", p.Method)
	}
	if p.Method.requiresReference() && p.TransactionRef == "" {
		return dErrors.Newf(dErrors.CodeMissingTransactionReference, "method %q requires a transaction reference", p.Method)
	}
	return nil
}

// Adjustment is the input to RecordAdjustment. Amount is signed: positive
// reduces what the student owes (discount, correction in the student's
// favor), negative increases it.
type Adjustment struct {
	Student domain.StudentID
	Course  domain.CourseID
	Amount  float64
	Note    string
}

func (a Adjustment) validate() error {
	if a.Amount == 0 {
		return dErrors.New(dErrors.CodeValidation, "adjustment amount must be non-zero")
	}
	if a.Note == "" {
		return dErrors.New(dErrors.CodeValidation, "adjustments require an explanatory note")
	}
	return nil
}

// Balance is the recomputed financial position for one (student, course).
type Balance struct {
	Student       domain.StudentID
	Course        domain.CourseID
	CourseFee     float64
	TotalPaid     float64
	TotalAdjusted float64
	Outstanding   float64
}

// Settled reports whether nothing is owed. Overpayment also counts as
// settled for eligibility purposes.
func (b Balance) Settled() bool { return b.Outstanding <= 0 }
