package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rtscore/internal/course"
	"rtscore/pkg/domain"
	"rtscore/pkg/platform/httputil"
	"rtscore/pkg/requestcontext"
)

type catalogHandler struct {
	svc    *course.Service
	logger *slog.Logger
}

func (h *catalogHandler) register(r chi.Router) {
	r.Post("/courses", h.handleCreateCourse)
	r.Get("/courses/{id}", h.handleGetCourse)
	r.Post("/courses/{id}/modules", h.handleAddModule)
	r.Get("/courses/{id}/modules", h.handleListModules)
}

type createCourseRequest struct {
	TenantID       string  `json:"tenant_id"`
	Name           string  `json:"name"`
	Fee            float64 `json:"fee"`
	DurationMonths int     `json:"duration_months"`
}

type courseResponse struct {
	ID             string  `json:"id"`
	TenantID       string  `json:"tenant_id"`
	Name           string  `json:"name"`
	Fee            float64 `json:"fee"`
	DurationMonths int     `json:"duration_months"`
}

func (h *catalogHandler) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createCourseRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	tenantID, err := domain.ParseTenantID(req.TenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.svc.CreateCourse(ctx, requestcontext.Actor(ctx), course.CourseInput{
		Tenant:         tenantID,
		Name:           req.Name,
		Fee:            req.Fee,
		DurationMonths: req.DurationMonths,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "course create failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, courseResponse{
		ID:             c.ID.String(),
		TenantID:       c.Tenant.String(),
		Name:           c.Name,
		Fee:            c.Fee,
		DurationMonths: c.DurationMonths,
	})
}

func (h *catalogHandler) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseCourseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.svc.Get(ctx, requestcontext.Actor(ctx), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, courseResponse{
		ID:             c.ID.String(),
		TenantID:       c.Tenant.String(),
		Name:           c.Name,
		Fee:            c.Fee,
		DurationMonths: c.DurationMonths,
	})
}

type addModuleRequest struct {
	Number       int     `json:"number"`
	Name         string  `json:"name"`
	TotalMarks   float64 `json:"total_marks"`
	PassingMarks float64 `json:"passing_marks"`
}

type moduleResponse struct {
	ID           string  `json:"id"`
	CourseID     string  `json:"course_id"`
	Number       int     `json:"number"`
	Name         string  `json:"name"`
	TotalMarks   float64 `json:"total_marks"`
	PassingMarks float64 `json:"passing_marks"`
	Active       bool    `json:"active"`
}

func moduleToResponse(m course.Module) moduleResponse {
	return moduleResponse{
		ID:           m.ID.String(),
		CourseID:     m.Course.String(),
		Number:       m.Number,
		Name:         m.Name,
		TotalMarks:   m.TotalMarks,
		PassingMarks: m.PassingMarks,
		Active:       m.Active,
	}
}

func (h *catalogHandler) handleAddModule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	courseID, err := domain.ParseCourseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req addModuleRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	m, err := h.svc.AddModule(ctx, requestcontext.Actor(ctx), course.ModuleInput{
		Course:       courseID,
		Number:       req.Number,
		Name:         req.Name,
		TotalMarks:   req.TotalMarks,
		PassingMarks: req.PassingMarks,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, moduleToResponse(*m))
}

func (h *catalogHandler) handleListModules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	courseID, err := domain.ParseCourseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	list, err := h.svc.Modules(ctx, requestcontext.Actor(ctx), courseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]moduleResponse, 0, len(list))
	for _, m := range list {
		out = append(out, moduleToResponse(m))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
