package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rtscore/internal/tenant"
	"rtscore/pkg/domain"
	"rtscore/pkg/platform/httputil"
	"rtscore/pkg/requestcontext"
)

type tenantHandler struct {
	svc    *tenant.Service
	logger *slog.Logger
}

func (h *tenantHandler) register(r chi.Router) {
	r.Post("/institutions", h.handleCreate)
	r.Get("/institutions/{id}", h.handleGet)
	r.Get("/institutions/{id}/settings", h.handleGetSettings)
	r.Put("/institutions/{id}/settings", h.handleUpdateSettings)
}

type createInstitutionRequest struct {
	Name         string `json:"name"`
	DistrictCode string `json:"district_code"`
}

type institutionResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DistrictCode string `json:"district_code"`
	Initials     string `json:"initials"`
	Code         string `json:"code"`
}

func institutionToResponse(inst *tenant.Institution) institutionResponse {
	return institutionResponse{
		ID:           inst.ID.String(),
		Name:         inst.Name,
		DistrictCode: inst.DistrictCode,
		Initials:     inst.Initials,
		Code:         inst.Code,
	}
}

func (h *tenantHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createInstitutionRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	inst, err := h.svc.Create(ctx, requestcontext.Actor(ctx), req.Name, req.DistrictCode)
	if err != nil {
		h.logger.WarnContext(ctx, "institution create failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, institutionToResponse(inst))
}

func (h *tenantHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseTenantID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	inst, err := h.svc.Get(ctx, requestcontext.Actor(ctx), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, institutionToResponse(inst))
}

type settingsPayload struct {
	AttendanceGating    bool    `json:"attendance_gating"`
	AttendanceThreshold float64 `json:"attendance_threshold"`
}

func (h *tenantHandler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseTenantID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, err := h.svc.Get(ctx, requestcontext.Actor(ctx), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	settings, err := h.svc.Settings(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, settingsPayload{
		AttendanceGating:    settings.AttendanceGating,
		AttendanceThreshold: settings.AttendanceThreshold,
	})
}

func (h *tenantHandler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseTenantID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req settingsPayload
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	err = h.svc.UpdateSettings(ctx, requestcontext.Actor(ctx), id, tenant.Settings{
		AttendanceGating:    req.AttendanceGating,
		AttendanceThreshold: req.AttendanceThreshold,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
