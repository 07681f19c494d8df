package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/booali9/obe-comiler-backend/internal/auth"
	"github.com/booali9/obe-comiler-backend/internal/config"
	"github.com/booali9/obe-comiler-backend/internal/db"
	httpx "github.com/booali9/obe-comiler-backend/internal/http"
	"github.com/booali9/obe-comiler-backend/internal/mailer"
	"github.com/booali9/obe-comiler-backend/internal/observability"
	"github.com/booali9/obe-comiler-backend/internal/queue/redisclient"
	"github.com/booali9/obe-comiler-backend/internal/repo/postgres"
	"github.com/booali9/obe-comiler-backend/internal/service"
	"github.com/booali9/obe-comiler-backend/internal/storage"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	ctx := context.Background()

	// tracing
	shutdownTracer, err := observability.InitTracer(ctx, "obe-forms-api", cfg.OTLPEndpoint)

	if err != nil {
		log.Warn("tracer init failed, continuing without traces", "err", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	// database
	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, cfg.DBURL); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	if err := db.EnsureAdminUser(ctx, pool, cfg); err != nil {
		log.Error("admin seed failed", "err", err)
		os.Exit(1)
	}

	// redis is only rate limiting; a failed ping downgrades, not aborts
	redisCli := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisCli.Close()

	if err := redisCli.Ping(ctx); err != nil {
		log.Warn("redis unreachable, rate limiting disabled", "err", err)
		redisCli = nil
	}

	// metrics
	registry := prometheus.NewRegistry()
	prom := observability.NewProm(registry)

	// attachment storage
	store, err := storage.New(ctx, cfg)

	if err != nil {
		log.Error("storage init failed", "err", err)
		os.Exit(1)
	}

	// outbound mail
	var mail mailer.Mailer = mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom)

	if cfg.Env == "dev" && cfg.SMTPUsername == "" {
		mail = mailer.NewLogMailer()
	}

	mail = mailer.NewInstrumentedMailer(mailer.NewProtectedMailer(mail, mailer.ProtectedMailerConfig{}), prom)

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(pool, prom)
	formsRepo := postgres.NewFormsRepo(pool, prom)
	jobsRepo := postgres.NewJobsRepo(pool, prom)

	// wire up services
	tokens := auth.NewManager(
		cfg.JWTSecret,
		time.Duration(cfg.SessionTTLMinutes)*time.Minute,
		time.Duration(cfg.ResetTTLMinutes)*time.Minute,
	)

	authSvc := service.NewAuthService(usersRepo, tokens, mail, log, cfg.AllowedEmailDomain)
	formSvc := service.NewFormService(formsRepo, jobsRepo, store, log)
	adminSvc := service.NewAdminUserService(usersRepo)

	deps := httpx.Deps{
		Cfg:        cfg,
		Log:        log,
		Pool:       pool,
		JWT:        tokens,
		Users:      usersRepo,
		Auth:       authSvc,
		Forms:      formSvc,
		AdminUsers: adminSvc,
		Prom:       prom,
		Registry:   registry,
	}

	if redisCli != nil {
		deps.Redis = redisCli.Raw()
	}

	router := httpx.NewRouter(deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		sctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(sctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
			return
		}

		_ = shutdownTracer(sctx)
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
