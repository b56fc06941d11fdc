package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"rtscore/internal/exam"
	"rtscore/pkg/domain"
	"rtscore/pkg/platform/httputil"
	"rtscore/pkg/requestcontext"
)

type examHandler struct {
	svc    *exam.Service
	logger *slog.Logger
}

func (h *examHandler) register(r chi.Router) {
	r.Post("/exams", h.handleSchedule)
	r.Post("/modules/{id}/questions", h.handleAddQuestion)
	r.Post("/exams/{id}/take", h.handleTake)
	r.Post("/exams/{id}/submit", h.handleSubmit)
	r.Post("/exams/{id}/marks", h.handleEnterMarks)
	r.Post("/exams/{id}/verify", h.handleVerify)
	r.Post("/exams/{id}/cancel", h.handleCancel)
	r.Get("/exams/{id}/result", h.handleResult)
}

type scheduleExamRequest struct {
	StudentID    string    `json:"student_id"`
	ModuleID     string    `json:"module_id"`
	WindowOpens  time.Time `json:"window_opens"`
	WindowCloses time.Time `json:"window_closes"`
}

type attemptResponse struct {
	ID            string     `json:"id"`
	StudentID     string     `json:"student_id"`
	ModuleID      string     `json:"module_id"`
	State         string     `json:"state"`
	WindowOpens   time.Time  `json:"window_opens"`
	WindowCloses  time.Time  `json:"window_closes"`
	TotalMarks    float64    `json:"total_marks"`
	PassingMarks  float64    `json:"passing_marks"`
	MarksObtained *float64   `json:"marks_obtained,omitempty"`
	Passed        *bool      `json:"passed,omitempty"`
	VerifiedAt    *time.Time `json:"verified_at,omitempty"`
}

func attemptToResponse(a *exam.Attempt) attemptResponse {
	return attemptResponse{
		ID:            a.ID.String(),
		StudentID:     a.Student.String(),
		ModuleID:      a.Module.String(),
		State:         string(a.State),
		WindowOpens:   a.WindowOpens,
		WindowCloses:  a.WindowCloses,
		TotalMarks:    a.TotalMarks,
		PassingMarks:  a.PassingMarks,
		MarksObtained: a.MarksObtained,
		Passed:        a.Passed,
		VerifiedAt:    a.VerifiedAt,
	}
}

func (h *examHandler) handleSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req scheduleExamRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	studentID, err := domain.ParseStudentID(req.StudentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	moduleID, err := domain.ParseModuleID(req.ModuleID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	a, err := h.svc.Schedule(ctx, requestcontext.Actor(ctx), exam.Schedule{
		Student:      studentID,
		Module:       moduleID,
		WindowOpens:  req.WindowOpens,
		WindowCloses: req.WindowCloses,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "exam scheduling failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, attemptToResponse(a))
}

// handleTransition covers the argument-free lifecycle moves.
func (h *examHandler) handleTransition(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, actor domain.Actor, id domain.AttemptID) (*exam.Attempt, error)) {
	ctx := r.Context()
	id, err := domain.ParseAttemptID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	a, err := op(ctx, requestcontext.Actor(ctx), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, attemptToResponse(a))
}

func (h *examHandler) handleTake(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.svc.Take)
}

func (h *examHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.svc.Verify)
}

func (h *examHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, h.svc.Cancel)
}

func (h *examHandler) handleEnterMarks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseAttemptID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req struct {
		Marks float64 `json:"marks"`
	}
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	a, err := h.svc.EnterMarks(ctx, requestcontext.Actor(ctx), id, req.Marks)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, attemptToResponse(a))
}

type addQuestionRequest struct {
	Number        int     `json:"number"`
	Text          string  `json:"text"`
	CorrectOption string  `json:"correct_option"`
	Marks         float64 `json:"marks"`
}

// questionResponse omits the correct option; the key never leaves the
// server.
type questionResponse struct {
	ID       string  `json:"id"`
	ModuleID string  `json:"module_id"`
	Number   int     `json:"number"`
	Text     string  `json:"text"`
	Marks    float64 `json:"marks"`
}

func (h *examHandler) handleAddQuestion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	moduleID, err := domain.ParseModuleID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req addQuestionRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	q, err := h.svc.AddQuestion(ctx, requestcontext.Actor(ctx), exam.QuestionInput{
		Module:        moduleID,
		Number:        req.Number,
		Text:          req.Text,
		CorrectOption: req.CorrectOption,
		Marks:         req.Marks,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, questionResponse{
		ID:       q.ID.String(),
		ModuleID: q.Module.String(),
		Number:   q.Number,
		Text:     q.Text,
		Marks:    q.Marks,
	})
}

type submitRequest struct {
	Answers []struct {
		QuestionID string `json:"question_id"`
		Option     string `json:"option"`
	} `json:"answers"`
}

func (h *examHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseAttemptID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	answers := make([]exam.Answer, 0, len(req.Answers))
	for _, a := range req.Answers {
		qid, err := domain.ParseQuestionID(a.QuestionID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		answers = append(answers, exam.Answer{Question: qid, Option: a.Option})
	}
	a, err := h.svc.Submit(ctx, requestcontext.Actor(ctx), id, answers)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, attemptToResponse(a))
}

type resultResponse struct {
	AttemptID     string    `json:"attempt_id"`
	ModuleID      string    `json:"module_id"`
	MarksObtained float64   `json:"marks_obtained"`
	TotalMarks    float64   `json:"total_marks"`
	PassingMarks  float64   `json:"passing_marks"`
	Passed        bool      `json:"passed"`
	VerifiedAt    time.Time `json:"verified_at"`
}

func (h *examHandler) handleResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseAttemptID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.svc.StudentResult(ctx, requestcontext.Actor(ctx), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resultResponse{
		AttemptID:     res.Attempt.String(),
		ModuleID:      res.Module.String(),
		MarksObtained: res.MarksObtained,
		TotalMarks:    res.TotalMarks,
		PassingMarks:  res.PassingMarks,
		Passed:        res.Passed,
		VerifiedAt:    res.VerifiedAt,
	})
}
