package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"rtscore/internal/attendance"
	"rtscore/internal/certificate"
	"rtscore/internal/course"
	"rtscore/internal/eligibility"
	"rtscore/internal/enrollment"
	"rtscore/internal/events"
	"rtscore/internal/exam"
	"rtscore/internal/ledger"
	"rtscore/internal/payroll"
	"rtscore/internal/platform/config"
	"rtscore/internal/platform/httpserver"
	"rtscore/internal/platform/logger"
	"rtscore/internal/platform/metrics"
	"rtscore/internal/platform/middleware"
	"rtscore/internal/platform/postgres"
	platformredis "rtscore/internal/platform/redis"
	"rtscore/internal/sequence"
	"rtscore/internal/staff"
	"rtscore/internal/tenant"
	httptransport "rtscore/internal/transport/http"
	"rtscore/pkg/platform/tx"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// stores gathers every persistence surface so wiring reads the same for
// Postgres and the in-memory fallback.
type stores struct {
	tenants     tenant.Store
	sequences   sequence.Store
	courses     course.Store
	staff       staff.Store
	students    enrollment.Store
	ledger      ledger.Store
	exams       exam.Store
	attendance  attendance.Store
	studentDays attendance.StudentStore
	certs       certificate.Store
	payroll     payroll.Store
	outbox      events.Store
	runner      tx.Runner
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := metrics.NewRegistry()

	var st stores
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		st = stores{
			tenants:     tenant.NewPostgres(db),
			sequences:   sequence.NewPostgres(db),
			courses:     course.NewPostgres(db),
			staff:       staff.NewPostgres(db),
			students:    enrollment.NewPostgres(db),
			ledger:      ledger.NewPostgres(db),
			exams:       exam.NewPostgres(db),
			attendance:  attendance.NewPostgres(db),
			studentDays: attendance.NewStudentPostgres(db),
			certs:       certificate.NewPostgres(db),
			payroll:     payroll.NewPostgres(db),
			outbox:      events.NewPostgres(db),
			runner:      tx.NewSQLRunner(db),
		}
		log.Info("connected to postgres")
	} else {
		st = stores{
			tenants:     tenant.NewInMemory(),
			sequences:   sequence.NewInMemory(),
			courses:     course.NewInMemory(),
			staff:       staff.NewInMemory(),
			students:    enrollment.NewInMemory(),
			ledger:      ledger.NewInMemory(),
			exams:       exam.NewInMemory(),
			attendance:  attendance.NewInMemory(),
			studentDays: attendance.NewStudentInMemory(),
			certs:       certificate.NewInMemory(),
			payroll:     payroll.NewInMemory(),
			outbox:      events.NewInMemory(),
			runner:      tx.NopRunner{},
		}
		log.Warn("no database configured, using in-memory stores")
	}

	rdb, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		st.tenants = tenant.NewSettingsCache(st.tenants, rdb.Client, log)
		log.Info("tenant settings cache enabled")
	}

	seq := sequence.NewAllocator(st.sequences,
		sequence.WithLogger(log),
		sequence.WithMetrics(sequence.NewMetrics(registry)),
	)

	tenants := tenant.NewService(st.tenants, tenant.WithLogger(log))
	catalog := course.NewService(st.courses, course.WithLogger(log))
	staffSvc := staff.NewService(st.staff, staff.WithLogger(log))
	enrollSvc := enrollment.NewService(st.students, st.courses, tenants, seq, st.runner, enrollment.WithLogger(log))
	ledgerSvc := ledger.NewService(st.ledger, st.students, st.courses, st.tenants, seq, st.outbox, st.runner,
		ledger.WithLogger(log),
		ledger.WithMetrics(ledger.NewMetrics(registry)),
	)
	examSvc := exam.NewService(st.exams, st.students, st.courses, st.outbox,
		exam.WithLogger(log),
		exam.WithMetrics(exam.NewMetrics(registry)),
	)
	attSvc := attendance.NewService(st.attendance, st.staff, attendance.WithLogger(log))
	studentDays := attendance.NewStudentRegister(st.studentDays, st.students)
	evaluator := eligibility.NewEvaluator(st.courses, examSvc, ledgerSvc, tenants, studentDays)
	certSvc := certificate.NewService(st.certs, st.students, st.courses, st.tenants, evaluator, seq, st.outbox, st.runner,
		certificate.WithLogger(log),
	)
	payrollSvc := payroll.NewService(st.payroll, st.staff, attSvc, payroll.WithLogger(log))

	auth := middleware.NewAuthenticator(cfg.JWTSigningKey, log)
	router := httptransport.NewRouter(httptransport.Services{
		Tenants:      tenants,
		Catalog:      catalog,
		Staff:        staffSvc,
		Enrollment:   enrollSvc,
		Ledger:       ledgerSvc,
		Exams:        examSvc,
		Attendance:   attSvc,
		StudentDays:  studentDays,
		Eligibility:  evaluator,
		Certificates: certSvc,
		Payroll:      payrollSvc,
	}, auth, registry, log)

	g, ctx := errgroup.WithContext(ctx)

	srv := httpserver.New(cfg.Addr, router)
	g.Go(func() error {
		log.Info("starting rtscore", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if len(cfg.KafkaBrokers) > 0 {
		client, err := kgo.NewClient(kgo.SeedBrokers(cfg.KafkaBrokers...))
		if err != nil {
			return err
		}
		defer client.Close()
		worker := events.NewWorker(st.outbox, client, st.runner, cfg.KafkaTopic, events.WithWorkerLogger(log))
		g.Go(func() error {
			return worker.Run(ctx)
		})
		log.Info("outbox worker started", "topic", cfg.KafkaTopic)
	} else {
		log.Warn("kafka not configured, outbox worker disabled")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutdown complete")
	return nil
}
