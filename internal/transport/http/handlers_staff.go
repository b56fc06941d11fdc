package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"rtscore/internal/staff"
	"rtscore/pkg/domain"
	dErrors "rtscore/pkg/domain-errors"
	"rtscore/pkg/platform/httputil"
	"rtscore/pkg/requestcontext"
)

type staffHandler struct {
	svc    *staff.Service
	logger *slog.Logger
}

func (h *staffHandler) register(r chi.Router) {
	r.Post("/staff", h.handleCreate)
	r.Get("/staff/{id}", h.handleGet)
	r.Put("/staff/{id}/rate", h.handleSetRate)
	r.Get("/institutions/{id}/staff", h.handleList)
}

type createStaffRequest struct {
	TenantID    string  `json:"tenant_id"`
	FullName    string  `json:"full_name"`
	Position    string  `json:"position"`
	DailyRate   float64 `json:"daily_rate"`
	JoiningDate string  `json:"joining_date"`
}

type staffResponse struct {
	ID          string  `json:"id"`
	TenantID    string  `json:"tenant_id"`
	FullName    string  `json:"full_name"`
	Position    string  `json:"position"`
	DailyRate   float64 `json:"daily_rate"`
	JoiningDate string  `json:"joining_date"`
}

func staffToResponse(m *staff.Member) staffResponse {
	return staffResponse{
		ID:          m.ID.String(),
		TenantID:    m.Tenant.String(),
		FullName:    m.FullName,
		Position:    m.Position,
		DailyRate:   m.DailyRate,
		JoiningDate: m.JoiningDate.Format(time.DateOnly),
	}
}

func (h *staffHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createStaffRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	tenantID, err := domain.ParseTenantID(req.TenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	joined, err := time.Parse(time.DateOnly, req.JoiningDate)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "joining_date must be YYYY-MM-DD"))
		return
	}
	m, err := h.svc.Create(ctx, requestcontext.Actor(ctx), staff.Hire{
		Tenant:      tenantID,
		FullName:    req.FullName,
		Position:    req.Position,
		DailyRate:   req.DailyRate,
		JoiningDate: joined,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "staff create failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, staffToResponse(m))
}

func (h *staffHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseStaffID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	m, err := h.svc.Get(ctx, requestcontext.Actor(ctx), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, staffToResponse(m))
}

func (h *staffHandler) handleSetRate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseStaffID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req struct {
		DailyRate float64 `json:"daily_rate"`
	}
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svc.SetDailyRate(ctx, requestcontext.Actor(ctx), id, req.DailyRate); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *staffHandler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, err := domain.ParseTenantID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	list, err := h.svc.List(ctx, requestcontext.Actor(ctx), tenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]staffResponse, 0, len(list))
	for i := range list {
		out = append(out, staffToResponse(&list[i]))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
