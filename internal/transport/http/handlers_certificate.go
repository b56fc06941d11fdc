package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"rtscore/internal/certificate"
	"rtscore/internal/eligibility"
	"rtscore/internal/enrollment"
	"rtscore/pkg/domain"
	"rtscore/pkg/platform/httputil"
	"rtscore/pkg/requestcontext"
)

type certificateHandler struct {
	svc       *certificate.Service
	evaluator *eligibility.Evaluator
	students  *enrollment.Service
	logger    *slog.Logger
}

func (h *certificateHandler) register(r chi.Router) {
	r.Post("/certificates", h.handleIssue)
	r.Get("/students/{id}/courses/{courseID}/eligibility", h.handleEligibility)
}

type issueCertificateRequest struct {
	StudentID string `json:"student_id"`
	CourseID  string `json:"course_id"`
}

type certificateResponse struct {
	ID        string    `json:"id"`
	Number    string    `json:"number"`
	StudentID string    `json:"student_id"`
	CourseID  string    `json:"course_id"`
	IssuedAt  time.Time `json:"issued_at"`
}

func (h *certificateHandler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req issueCertificateRequest
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
	cert, err := h.svc.Issue(ctx, requestcontext.Actor(ctx), studentID, courseID)
	if err != nil {
		h.logger.WarnContext(ctx, "certificate issuance failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, certificateResponse{
		ID:        cert.ID.String(),
		Number:    cert.Number,
		StudentID: cert.Student.String(),
		CourseID:  cert.Course.String(),
		IssuedAt:  cert.IssuedAt,
	})
}

// handleEligibility reports the would-issue verdict without issuing. The
// student read doubles as the scope check.
func (h *certificateHandler) handleEligibility(w http.ResponseWriter, r *http.Request) {
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
	student, err := h.students.Get(ctx, requestcontext.Actor(ctx), studentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	eval, err := h.evaluator.IsCertificateEligible(ctx, student.Tenant, studentID, courseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, eval)
}

// handleVerify is the public QR endpoint. No auth, no tenant scope; the
// certificate number is the whole credential.
func (h *certificateHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	payload, err := h.svc.Verify(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, payload)
}
