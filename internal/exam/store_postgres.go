package exam

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"rtscore/pkg/domain"
	"rtscore/pkg/platform/sentinel"
	txcontext "rtscore/pkg/platform/tx"
)

// A partial unique index enforces one active attempt per (student, module):
//
//	CREATE UNIQUE INDEX ON exam_attempts (student_id, module_id)
//	WHERE state IN ('scheduled', 'taken', 'scored_unverified');
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const attemptColumns = `
	id, tenant_id, student_id, module_id, state,
	window_opens, window_closes, total_marks, passing_marks,
	marks_obtained, passed, taken_at, scored_by, verified_by, verified_at
`

func (s *Postgres) CreateAttempt(ctx context.Context, a *Attempt) error {
	const query = `
		INSERT INTO exam_attempts
			(id, tenant_id, student_id, module_id, state, window_opens, window_closes, total_marks, passing_marks)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(a.ID), uuid.UUID(a.Tenant), uuid.UUID(a.Student), uuid.UUID(a.Module),
		string(a.State), a.WindowOpens, a.WindowCloses, a.TotalMarks, a.PassingMarks,
	)
	if err != nil {
		if txcontext.IsUniqueViolation(err) {
			return sentinel.ErrDuplicate
		}
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *Postgres) FindAttempt(ctx context.Context, id domain.AttemptID) (*Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM exam_attempts WHERE id = $1`
	a, err := scanAttempt(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find attempt: %w", err)
	}
	return a, nil
}

func (s *Postgres) FindActiveAttempt(ctx context.Context, student domain.StudentID, module domain.ModuleID) (*Attempt, error) {
	query := `
		SELECT ` + attemptColumns + `
		FROM exam_attempts
		WHERE student_id = $1 AND module_id = $2
		  AND state IN ('scheduled', 'taken', 'scored_unverified')
	`
	a, err := scanAttempt(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(student), uuid.UUID(module)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find active attempt: %w", err)
	}
	return a, nil
}

func (s *Postgres) ListByStudent(ctx context.Context, student domain.StudentID) ([]Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM exam_attempts WHERE student_id = $1 ORDER BY window_opens`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(student))
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Update writes the full row guarded by the expected state. Zero rows
// affected means somebody else transitioned first.
func (s *Postgres) Update(ctx context.Context, a *Attempt, expected State) error {
	const query = `
		UPDATE exam_attempts
		SET state = $2, marks_obtained = $3, passed = $4, taken_at = $5,
		    scored_by = $6, verified_by = $7, verified_at = $8
		WHERE id = $1 AND state = $9
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(a.ID), string(a.State), a.MarksObtained, a.Passed, a.TakenAt,
		nullableUUID(a.ScoredBy), nullableUUID(a.VerifiedBy), a.VerifiedAt,
		string(expected),
	)
	if err != nil {
		return fmt.Errorf("update attempt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update attempt: %w", err)
	}
	if n == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *Postgres) CreateQuestion(ctx context.Context, q *Question) error {
	const query = `
		INSERT INTO exam_questions (id, module_id, number, text, correct_option, marks)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(q.ID), uuid.UUID(q.Module), q.Number, q.Text, q.CorrectOption, q.Marks,
	)
	if err != nil {
		if txcontext.IsUniqueViolation(err) {
			return sentinel.ErrDuplicate
		}
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func (s *Postgres) ListQuestions(ctx context.Context, module domain.ModuleID) ([]Question, error) {
	const query = `
		SELECT id, module_id, number, text, correct_option, marks
		FROM exam_questions
		WHERE module_id = $1
		ORDER BY number
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(module))
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var out []Question
	for rows.Next() {
		var q Question
		var rawID, rawModule uuid.UUID
		if err := rows.Scan(&rawID, &rawModule, &q.Number, &q.Text, &q.CorrectOption, &q.Marks); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.ID = domain.QuestionID(rawID)
		q.Module = domain.ModuleID(rawModule)
		out = append(out, q)
	}
	return out, rows.Err()
}

func nullableUUID(id *domain.UserID) any {
	if id == nil {
		return nil
	}
	return uuid.UUID(*id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row scanner) (*Attempt, error) {
	var a Attempt
	var rawID, rawTenant, rawStudent, rawModule uuid.UUID
	var state string
	var marks sql.NullFloat64
	var passed sql.NullBool
	var takenAt, verifiedAt sql.NullTime
	var scoredBy, verifiedBy uuid.NullUUID
	if err := row.Scan(
		&rawID, &rawTenant, &rawStudent, &rawModule, &state,
		&a.WindowOpens, &a.WindowCloses, &a.TotalMarks, &a.PassingMarks,
		&marks, &passed, &takenAt, &scoredBy, &verifiedBy, &verifiedAt,
	); err != nil {
		return nil, err
	}
	a.ID = domain.AttemptID(rawID)
	a.Tenant = domain.TenantID(rawTenant)
	a.Student = domain.StudentID(rawStudent)
	a.Module = domain.ModuleID(rawModule)
	a.State = State(state)
	if marks.Valid {
		a.MarksObtained = &marks.Float64
	}
	if passed.Valid {
		a.Passed = &passed.Bool
	}
	if takenAt.Valid {
		a.TakenAt = &takenAt.Time
	}
	if scoredBy.Valid {
		by := domain.UserID(scoredBy.UUID)
		a.ScoredBy = &by
	}
	if verifiedBy.Valid {
		by := domain.UserID(verifiedBy.UUID)
		a.VerifiedBy = &by
	}
	if verifiedAt.Valid {
		a.VerifiedAt = &verifiedAt.Time
	}
	return &a, nil
}
