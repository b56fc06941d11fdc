package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"rtscore/internal/ledger"
	"rtscore/pkg/domain"
	"rtscore/pkg/platform/httputil"
	"rtscore/pkg/requestcontext"
)

type ledgerHandler struct {
	svc    *ledger.Service
	logger *slog.Logger
}

func (h *ledgerHandler) register(r chi.Router) {
	r.Post("/payments", h.handleRecordPayment)
	r.Post("/adjustments", h.handleRecordAdjustment)
	r.Get("/students/{id}/courses/{courseID}/balance", h.handleBalance)
}

type recordPaymentRequest struct {
	StudentID      string  `json:"student_id"`
	CourseID       string  `json:"course_id"`
	Amount         float64 `json:"amount"`
	Method         string  `json:"method"`
	TransactionRef string  `json:"transaction_ref,omitempty"`
	Note           string  `json:"note,omitempty"`
}

type recordResponse struct {
	ID             string    `json:"id"`
	StudentID      string    `json:"student_id"`
	CourseID       string    `json:"course_id"`
	Kind           string    `json:"kind"`
	Amount         float64   `json:"amount"`
	Method         string    `json:"method,omitempty"`
	TransactionRef string    `json:"transaction_ref,omitempty"`
	ReceiptNo      string    `json:"receipt_no,omitempty"`
	Note           string    `json:"note,omitempty"`
	RecordedAt     time.Time `json:"recorded_at"`
}

func recordToResponse(rec *ledger.Record) recordResponse {
	return recordResponse{
		ID:             rec.ID.String(),
		StudentID:      rec.Student.String(),
		CourseID:       rec.Course.String(),
		Kind:           string(rec.Kind),
		Amount:         rec.Amount,
		Method:         string(rec.Method),
		TransactionRef: rec.TransactionRef,
		ReceiptNo:      rec.ReceiptNo,
		Note:           rec.Note,
		RecordedAt:     rec.RecordedAt,
	}
}

func (h *ledgerHandler) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req recordPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	studentID, err := domain.ParseStudentID(req.StudentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	courseID, err := domain.ParseCourseID(req.CourseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.svc.RecordPayment(ctx, requestcontext.Actor(ctx), ledger.Payment{
		Student:        studentID,
		Course:         courseID,
		Amount:         req.Amount,
		Method:         ledger.Method(req.Method),
		TransactionRef: req.TransactionRef,
		Note:           req.Note,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "payment rejected",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, recordToResponse(rec))
}

type recordAdjustmentRequest struct {
	StudentID string  `json:"student_id"`
	CourseID  string  `json:"course_id"`
	Amount    float64 `json:"amount"`
	Note      string  `json:"note"`
}

func (h *ledgerHandler) handleRecordAdjustment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req recordAdjustmentRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	studentID, err := domain.ParseStudentID(req.StudentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	courseID, err := domain.ParseCourseID(req.CourseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.svc.RecordAdjustment(ctx, requestcontext.Actor(ctx), ledger.Adjustment{
		Student: studentID,
		Course:  courseID,
		Amount:  req.Amount,
		Note:    req.Note,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, recordToResponse(rec))
}

type balanceResponse struct {
	StudentID     string  `json:"student_id"`
	CourseID      string  `json:"course_id"`
	CourseFee     float64 `json:"course_fee"`
	TotalPaid     float64 `json:"total_paid"`
	TotalAdjusted float64 `json:"total_adjusted"`
	Outstanding   float64 `json:"outstanding"`
	Settled       bool    `json:"settled"`
}

func (h *ledgerHandler) handleBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	studentID, err := domain.ParseStudentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	courseID, err := domain.ParseCourseID(chi.URLParam(r, "courseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	b, err := h.svc.GetBalance(ctx, requestcontext.Actor(ctx), studentID, courseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, balanceResponse{
		StudentID:     b.Student.String(),
		CourseID:      b.Course.String(),
		CourseFee:     b.CourseFee,
		TotalPaid:     b.TotalPaid,
		TotalAdjusted: b.TotalAdjusted,
		Outstanding:   b.Outstanding,
		Settled:       b.Settled(),
	})
}
