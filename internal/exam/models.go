// Package exam runs the attempt lifecycle. The state graph is closed: every
// transition goes through the table below and anything else is an
// invalid_transition, no matter how plausible the shortcut looks.
package exam

import (
	"strings"
	"time"

	"rtscore/pkg/domain"
	dErrors "rtscore/pkg/domain-errors"
)

// State of one exam attempt.
type State string

const (
	StateScheduled        State = "scheduled"
	StateTaken            State = "taken"
	StateScoredUnverified State = "scored_unverified"
	StateVerified         State = "verified"
	StateCancelled        State = "cancelled"
)

// transitions is the closed state graph. Cancellation is allowed only
// before marks exist; a scored attempt is evidence and must be verified or
// left as it is.
var transitions = map[State][]State{
	StateScheduled:        {StateTaken, StateCancelled},
	StateTaken:            {StateScoredUnverified, StateCancelled},
	StateScoredUnverified: {StateVerified},
}

// canTransition reports whether from → to is in the graph.
func canTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Attempt is one student's run at one module. PassingMarks and TotalMarks
// are snapshots taken at scheduling time; later edits to the module do not
// reach attempts already in flight.
type Attempt struct {
	ID           domain.AttemptID
	Tenant       domain.TenantID
	Student      domain.StudentID
	Module       domain.ModuleID
	State        State
	WindowOpens  time.Time
	WindowCloses time.Time
	TotalMarks   float64
	PassingMarks float64

	MarksObtained *float64
	Passed        *bool
	TakenAt       *time.Time
	ScoredBy      *domain.UserID
	VerifiedBy    *domain.UserID
	VerifiedAt    *time.Time
}

// Schedule is the input to the Schedule operation.
type Schedule struct {
	Student      domain.StudentID
	Module       domain.ModuleID
	WindowOpens  time.Time
	WindowCloses time.Time
}

func (s Schedule) validate() error {
	if !s.WindowCloses.After(s.WindowOpens) {
		return dErrors.New(dErrors.CodeValidation, "exam window must close after it opens")
	}
	return nil
}

// Result is the student-facing view, released only after verification.
type Result struct {
	Attempt       domain.AttemptID
	Module        domain.ModuleID
	MarksObtained float64
	TotalMarks    float64
	PassingMarks  float64
	Passed        bool
	VerifiedAt    time.Time
}

// Question is one entry in a module's answer key. A module with a key
// scores student submissions automatically; a module without one relies on
// manual marks entry.
type Question struct {
	ID            domain.QuestionID
	Module        domain.ModuleID
	Number        int
	Text          string
	CorrectOption string
	Marks         float64
}

// QuestionInput is the input to AddQuestion.
type QuestionInput struct {
	Module        domain.ModuleID
	Number        int
	Text          string
	CorrectOption string
	Marks         float64
}

func (q QuestionInput) validate() error {
	if q.Number < 1 {
		return dErrors.New(dErrors.CodeValidation, "question number must be positive")
	}
	if strings.TrimSpace(q.CorrectOption) == "" {
		return dErrors.New(dErrors.CodeValidation, "a question requires a correct option")
	}
	if q.Marks <= 0 {
		return dErrors.New(dErrors.CodeValidation, "question marks must be positive")
	}
	return nil
}

// Answer is one submitted option.
type Answer struct {
	Question domain.QuestionID
	Option   string
}

// scoreAnswers sums the marks of correctly answered questions. An answer
// pointing outside the module or repeating a question rejects the whole
// submission; an unanswered question simply scores zero.
func scoreAnswers(questions []Question, answers []Answer) (float64, error) {
	byID := make(map[domain.QuestionID]Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	seen := make(map[domain.QuestionID]bool, len(answers))
	var total float64
	for _, ans := range answers {
		q, ok := byID[ans.Question]
		if !ok {
			return 0, dErrors.New(dErrors.CodeValidation, "answer references a question outside this module")
		}
		if seen[ans.Question] {
			return 0, dErrors.New(dErrors.CodeValidation, "duplicate answer for one question")
		}
		seen[ans.Question] = true
		if strings.EqualFold(strings.TrimSpace(ans.Option), q.CorrectOption) {
			total += q.Marks
		}
	}
	return total, nil
}
