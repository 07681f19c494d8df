package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/booali9/obe-comiler-backend/internal/domain/form"
	"github.com/booali9/obe-comiler-backend/internal/domain/job"
	"github.com/booali9/obe-comiler-backend/internal/domain/user"
	"github.com/booali9/obe-comiler-backend/internal/mailer"
	"github.com/booali9/obe-comiler-backend/internal/observability"
)

type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (job.Job, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
	RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error)
}

type FormsReader interface {
	GetByID(ctx context.Context, id string) (form.Form, error)
	ListAll(ctx context.Context, limit, offset int) ([]form.Form, error)
}

type UsersReader interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type Config struct {
	WorkerID     string
	PollInterval time.Duration
	LockTTL      time.Duration
	// destination for form submission alerts
	AdminEmail string
}

type Worker struct {
	cfg   Config
	repo  JobsRepository
	forms FormsReader
	users UsersReader
	mail  mailer.Mailer
	store ObjectStore
	log   *slog.Logger
	prom  *observability.Prom

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, repo JobsRepository, forms FormsReader, users UsersReader, mail mailer.Mailer, store ObjectStore, log *slog.Logger, prom *observability.Prom) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}

	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 60 * time.Second
	}

	return &Worker{
		cfg:   cfg,
		repo:  repo,
		forms: forms,
		users: users,
		mail:  mail,
		store: store,
		log:   log,
		prom:  prom,
	}
}

func (w *Worker) setReady(ready bool) {
	w.readyMu.Lock()
	w.ready = ready
	w.readyMu.Unlock()
}

func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	staleTicker := time.NewTicker(w.cfg.LockTTL)
	defer staleTicker.Stop()

	w.setReady(true)
	defer w.setReady(false)

	w.log.Info("worker started", "worker_id", w.cfg.WorkerID, "poll_interval", w.cfg.PollInterval)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker received shutdown signal")
			return nil

		case <-staleTicker.C:
			n, err := w.repo.RequeueStaleProcessing(ctx, w.cfg.LockTTL)

			if err != nil {
				w.log.Error("stale requeue failed", "err", err)
			} else if n > 0 {
				w.log.Warn("requeued stale jobs", "count", n)
			}

		case <-ticker.C:
			// drain everything that is ready before sleeping again
			for {
				processed, err := w.ProcessOne(ctx)

				if err != nil {
					w.log.Error("process error", "err", err)
					break
				}

				if !processed {
					break
				}
			}
		}
	}
}
