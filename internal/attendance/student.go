package attendance

import (
	"context"
	"errors"
	"time"

	"rtscore/internal/enrollment"
	"rtscore/internal/scope"
	"rtscore/pkg/domain"
	dErrors "rtscore/pkg/domain-errors"
	"rtscore/pkg/platform/sentinel"
	"rtscore/pkg/requestcontext"
)

// StudentRecord is one student class day for one course. Same overwrite
// semantics as the staff register.
type StudentRecord struct {
	Student  domain.StudentID
	Course   domain.CourseID
	Tenant   domain.TenantID
	Date     time.Time
	Present  bool
	MarkedBy domain.UserID
	MarkedAt time.Time
}

// StudentStore persists the student register.
type StudentStore interface {
	UpsertStudentDay(ctx context.Context, r *StudentRecord) error
	CountStudentDays(ctx context.Context, student domain.StudentID, c domain.CourseID) (present, total int, err error)
}

// StudentDirectory resolves the student's tenant for scoping.
type StudentDirectory interface {
	FindStudent(ctx context.Context, id domain.StudentID) (*enrollment.Student, error)
}

// StudentRegister marks student class attendance, consumed by the
// eligibility gate.
type StudentRegister struct {
	store    StudentStore
	students StudentDirectory
}

func NewStudentRegister(store StudentStore, students StudentDirectory) *StudentRegister {
	return &StudentRegister{store: store, students: students}
}

// MarkStudentDay records one class day, overwriting an earlier mark for the
// same (student, course, date).
func (r *StudentRegister) MarkStudentDay(ctx context.Context, actor domain.Actor, student domain.StudentID, c domain.CourseID, date time.Time, present bool) error {
	sc, err := scope.Authorize(actor, scope.OpMarkAttendance)
	if err != nil {
		return err
	}
	st, err := r.students.FindStudent(ctx, student)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "student not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load student")
	}
	if err := sc.Check(st.Tenant); err != nil {
		return err
	}
	rec := &StudentRecord{
		Student:  student,
		Course:   c,
		Tenant:   st.Tenant,
		Date:     Day(date),
		Present:  present,
		MarkedBy: actor.ID,
		MarkedAt: requestcontext.Now(ctx),
	}
	if err := r.store.UpsertStudentDay(ctx, rec); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark student attendance")
	}
	return nil
}

// Percentage returns the student's attendance rate for a course and whether
// any days were marked at all. Callers decide how to treat an empty
// register.
func (r *StudentRegister) Percentage(ctx context.Context, student domain.StudentID, c domain.CourseID) (float64, bool, error) {
	present, total, err := r.store.CountStudentDays(ctx, student, c)
	if err != nil {
		return 0, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count attendance")
	}
	if total == 0 {
		return 0, false, nil
	}
	return 100 * float64(present) / float64(total), true, nil
}
