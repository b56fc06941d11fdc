// Package httptransport is the thin HTTP layer. Handlers decode requests,
// delegate to domain services and translate domain errors onto the wire;
// business logic never lives here.
package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rtscore/internal/attendance"
	"rtscore/internal/certificate"
	"rtscore/internal/course"
	"rtscore/internal/eligibility"
	"rtscore/internal/enrollment"
	"rtscore/internal/exam"
	"rtscore/internal/ledger"
	"rtscore/internal/payroll"
	"rtscore/internal/platform/middleware"
	"rtscore/internal/staff"
	"rtscore/internal/tenant"
	dErrors "rtscore/pkg/domain-errors"
	"rtscore/pkg/platform/httputil"
)

// Services bundles the domain services the router exposes.
type Services struct {
	Tenants      *tenant.Service
	Catalog      *course.Service
	Staff        *staff.Service
	Enrollment   *enrollment.Service
	Ledger       *ledger.Service
	Exams        *exam.Service
	Attendance   *attendance.Service
	StudentDays  *attendance.StudentRegister
	Eligibility  *eligibility.Evaluator
	Certificates *certificate.Service
	Payroll      *payroll.Service
}

// NewRouter wires every endpoint. Certificate verification, health and
// metrics are public; everything else sits behind bearer auth.
func NewRouter(svc Services, auth *middleware.Authenticator, registry *prometheus.Registry, logger *slog.Logger) http.Handler {
	tenants := &tenantHandler{svc: svc.Tenants, logger: logger}
	catalog := &catalogHandler{svc: svc.Catalog, logger: logger}
	staffH := &staffHandler{svc: svc.Staff, logger: logger}
	students := &enrollmentHandler{svc: svc.Enrollment, logger: logger}
	money := &ledgerHandler{svc: svc.Ledger, logger: logger}
	exams := &examHandler{svc: svc.Exams, logger: logger}
	register := &attendanceHandler{svc: svc.Attendance, students: svc.StudentDays, logger: logger}
	certs := &certificateHandler{
		svc:       svc.Certificates,
		evaluator: svc.Eligibility,
		students:  svc.Enrollment,
		logger:    logger,
	}
	salaries := &payrollHandler{svc: svc.Payroll, logger: logger}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Get("/certificates/verify/{number}", certs.handleVerify)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)
		tenants.register(r)
		catalog.register(r)
		staffH.register(r)
		students.register(r)
		money.register(r)
		exams.register(r)
		register.register(r)
		certs.register(r)
		salaries.register(r)
	})
	return r
}

// decodeJSON reads a request body into dst, mapping malformed input to a
// validation error.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return dErrors.New(dErrors.CodeValidation, "invalid request body")
	}
	return nil
}
