package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"rtscore/internal/enrollment"
	"rtscore/pkg/domain"
	"rtscore/pkg/platform/httputil"
	"rtscore/pkg/requestcontext"
)

type enrollmentHandler struct {
	svc    *enrollment.Service
	logger *slog.Logger
}

func (h *enrollmentHandler) register(r chi.Router) {
	r.Post("/students", h.handleRegister)
	r.Get("/students/{id}", h.handleGet)
	r.Delete("/students/{id}", h.handleDelete)
	r.Get("/students/by-enrollment/{enrollmentID}", h.handleLookup)
	r.Post("/students/{id}/enrollments", h.handleEnroll)
	r.Get("/students/{id}/enrollments", h.handleListEnrollments)
}

type registerStudentRequest struct {
	TenantID     string `json:"tenant_id"`
	FullName     string `json:"full_name"`
	GuardianName string `json:"guardian_name"`
	Phone        string `json:"phone"`
	Batch        string `json:"batch"`
}

type studentResponse struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id"`
	EnrollmentID string     `json:"enrollment_id"`
	FullName     string     `json:"full_name"`
	GuardianName string     `json:"guardian_name,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Batch        string     `json:"batch,omitempty"`
	RegisteredAt time.Time  `json:"registered_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

func studentToResponse(s *enrollment.Student) studentResponse {
	return studentResponse{
		ID:           s.ID.String(),
		TenantID:     s.Tenant.String(),
		EnrollmentID: s.EnrollmentID,
		FullName:     s.FullName,
		GuardianName: s.GuardianName,
		Phone:        s.Phone,
		Batch:        s.Batch,
		RegisteredAt: s.RegisteredAt,
		DeletedAt:    s.DeletedAt,
	}
}

func (h *enrollmentHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req registerStudentRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	tenantID, err := domain.ParseTenantID(req.TenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	student, err := h.svc.Register(ctx, requestcontext.Actor(ctx), enrollment.Registration{
		Tenant:       tenantID,
		FullName:     req.FullName,
		GuardianName: req.GuardianName,
		Phone:        req.Phone,
		Batch:        req.Batch,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "student registration failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, studentToResponse(student))
}

func (h *enrollmentHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseStudentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	student, err := h.svc.Get(ctx, requestcontext.Actor(ctx), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, studentToResponse(student))
}

func (h *enrollmentHandler) handleLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	student, err := h.svc.Lookup(ctx, requestcontext.Actor(ctx), chi.URLParam(r, "enrollmentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, studentToResponse(student))
}

func (h *enrollmentHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseStudentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svc.Delete(ctx, requestcontext.Actor(ctx), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type enrollRequest struct {
	CourseID string `json:"course_id"`
}

type enrollmentResponse struct {
	StudentID  string    `json:"student_id"`
	CourseID   string    `json:"course_id"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

func (h *enrollmentHandler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	studentID, err := domain.ParseStudentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req enrollRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	courseID, err := domain.ParseCourseID(req.CourseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	e, err := h.svc.Enroll(ctx, requestcontext.Actor(ctx), studentID, courseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, enrollmentResponse{
		StudentID:  e.Student.String(),
		CourseID:   e.Course.String(),
		EnrolledAt: e.EnrolledAt,
	})
}

func (h *enrollmentHandler) handleListEnrollments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	studentID, err := domain.ParseStudentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	list, err := h.svc.Enrollments(ctx, requestcontext.Actor(ctx), studentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]enrollmentResponse, 0, len(list))
	for _, e := range list {
		out = append(out, enrollmentResponse{
			StudentID:  e.Student.String(),
			CourseID:   e.Course.String(),
			EnrolledAt: e.EnrolledAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
