package httptransport

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"rtscore/internal/attendance"
	"rtscore/pkg/domain"
	dErrors "rtscore/pkg/domain-errors"
	"rtscore/pkg/platform/httputil"
	"rtscore/pkg/requestcontext"
)

type attendanceHandler struct {
	svc      *attendance.Service
	students *attendance.StudentRegister
	logger   *slog.Logger
}

func (h *attendanceHandler) register(r chi.Router) {
	r.Put("/attendance/staff", h.handleMarkStaff)
	r.Get("/staff/{id}/attendance", h.handleStaffSummary)
	r.Put("/attendance/students", h.handleMarkStudent)
}

type markStaffRequest struct {
	StaffID string `json:"staff_id"`
	Date    string `json:"date"`
	Status  string `json:"status"`
}

func (h *attendanceHandler) handleMarkStaff(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req markStaffRequest
	if err := decodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	staffID, err := domain.ParseStaffID(req.StaffID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "date must be YYYY-MM-DD"))
		return
	}
	rec, err := h.svc.MarkDay(ctx, requestcontext.Actor(ctx), attendance.Mark{
		Staff:  staffID,
		Date:   date,
		Status: attendance.Status(req.Status),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "attendance mark failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"staff_id": rec.Staff.String(),
		"date":     rec.Date.Format(time.DateOnly),
		"status":   string(rec.Status),
	})
}

type monthSummaryResponse struct {
	StaffID  string  `json:"staff_id"`
	Month    int     `json:"month"`
	Year     int     `json:"year"`
	Present  int     `json:"present"`
	Absent   int     `json:"absent"`
	HalfDays int     `json:"half_days"`
	Leave    int     `json:"leave"`
	Worked   float64 `json:"worked_days"`
}

func (h *attendanceHandler) handleStaffSummary(w http.ResponseWriter, r *http.Request) {
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
	sum, err := h.svc.MonthSummary(ctx, staffID, month, year)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, monthSummaryResponse{
		StaffID:  sum.Staff.String(),
		Month:    sum.Month,
		Year:     sum.Year,
		Present:  sum.Present,
		Absent:   sum.Absent,
		HalfDays: sum.HalfDays,
		Leave:    sum.Leave,
		Worked:   sum.WorkedDays(),
	})
}

type markStudentRequest struct {
	StudentID string `json:"student_id"`
	CourseID  string `json:"course_id"`
	Date      string `json:"date"`
	Present   bool   `json:"present"`
}

func (h *attendanceHandler) handleMarkStudent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req markStudentRequest
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
	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "date must be YYYY-MM-DD"))
		return
	}
	err = h.students.MarkStudentDay(ctx, requestcontext.Actor(ctx), studentID, courseID, date, req.Present)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// monthYearParams parses the ?month=&year= pair shared by attendance and
// payroll reads.
func monthYearParams(r *http.Request) (int, int, error) {
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, dErrors.New(dErrors.CodeValidation, "month must be 1-12")
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 2000 || year > 9999 {
		return 0, 0, dErrors.New(dErrors.CodeValidation, "year must be a four-digit year")
	}
	return month, year, nil
}
