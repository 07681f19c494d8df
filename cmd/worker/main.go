package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/booali9/obe-comiler-backend/internal/config"
	"github.com/booali9/obe-comiler-backend/internal/db"
	"github.com/booali9/obe-comiler-backend/internal/mailer"
	"github.com/booali9/obe-comiler-backend/internal/observability"
	"github.com/booali9/obe-comiler-backend/internal/queue/worker"
	"github.com/booali9/obe-comiler-backend/internal/repo/postgres"
	"github.com/booali9/obe-comiler-backend/internal/storage"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	registry := prometheus.NewRegistry()
	prom := observability.NewProm(registry)

	jobsRepo := postgres.NewJobsRepo(pool, prom)
	formsRepo := postgres.NewFormsRepo(pool, prom)
	usersRepo := postgres.NewUsersRepo(pool, prom)

	store, err := storage.New(ctx, cfg)

	if err != nil {
		log.Error("storage init failed", "err", err)
		os.Exit(1)
	}

	var mail mailer.Mailer = mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom)

	if cfg.Env == "dev" && cfg.SMTPUsername == "" {
		mail = mailer.NewLogMailer()
	}

	mail = mailer.NewInstrumentedMailer(mailer.NewProtectedMailer(mail, mailer.ProtectedMailerConfig{}), prom)

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		WorkerID:     workerID,
		PollInterval: time.Second,
		LockTTL:      60 * time.Second,
		AdminEmail:   cfg.AdminEmail,
	}, jobsRepo, formsRepo, usersRepo, mail, store, log, prom)

	// liveness/readiness sidecar
	healthSrv := &http.Server{
		Addr:    ":8090",
		Handler: w.HealthHandler(),
	}

	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("health server failed", "err", err)
		}
	}()

	log.Info("worker starting", "worker_id", workerID)

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	sctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()

	_ = healthSrv.Shutdown(sctx)

	log.Info("worker shutdown complete")
}
