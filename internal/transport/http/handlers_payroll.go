package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"rtscore/internal/payroll"
	"rtscore/pkg/domain"
	"rtscore/pkg/platform/httputil"
	"rtscore/pkg/requestcontext"
)

type payrollHandler struct {
	svc    *payroll.Service
	logger *slog.Logger
}

func (h *payrollHandler) register(r chi.Router) {
	r.Post("/payroll/compute", h.handleCompute)
	r.Post("/payroll/finalize", h.handleFinalize)
	r.Get("/staff/{id}/payroll", h.handleGet)
}

type payrollRequest struct {
	StaffID string `json:"staff_id"`
	Month   int    `json:"month"`
	Year    int    `json:"year"`
}

type periodResponse struct {
	StaffID     string    `json:"staff_id"`
	Month       int       `json:"month"`
	Year        int       `json:"year"`
	PresentDays int       `json:"present_days"`
	HalfDays    int       `json:"half_days"`
	AbsentDays  int       `json:"absent_days"`
	LeaveDays   int       `json:"leave_days"`
	DailyRate   float64   `json:"daily_rate"`
	Gross       float64   `json:"gross"`
	Finalized   bool      `json:"finalized"`
	GeneratedAt time.Time `json:"generated_at"`
}

func periodToResponse(p *payroll.Period) periodResponse {
	return periodResponse{
		StaffID:     p.Staff.String(),
		Month:       p.Month,
		Year:        p.Year,
		PresentDays: p.PresentDays,
		HalfDays:    p.HalfDays,
		AbsentDays:  p.AbsentDays,
		LeaveDays:   p.LeaveDays,
		DailyRate:   p.DailyRate,
		Gross:       p.Gross,
		Finalized:   p.Finalized,
		GeneratedAt: p.GeneratedAt,
	}
}

func (h *payrollHandler) handleCompute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req payrollRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	staffID, err := domain.ParseStaffID(req.StaffID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.svc.Compute(ctx, requestcontext.Actor(ctx), staffID, req.Month, req.Year)
	if err != nil {
		h.logger.WarnContext(ctx, "payroll computation failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, periodToResponse(p))
}

func (h *payrollHandler) handleFinalize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req payrollRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	staffID, err := domain.ParseStaffID(req.StaffID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.svc.Finalize(ctx, requestcontext.Actor(ctx), staffID, req.Month, req.Year); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *payrollHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	staffID, err := domain.ParseStaffID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	month, year, err := monthYearParams(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.svc.Get(ctx, requestcontext.Actor(ctx), staffID, month, year)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, periodToResponse(p))
}
