package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/booali9/obe-comiler-backend/internal/domain/form"
	"github.com/booali9/obe-comiler-backend/internal/domain/job"
	"github.com/booali9/obe-comiler-backend/internal/jobs"
)

// errPermanent wraps failures that retries cannot fix.
var errPermanent = errors.New("permanent job failure")

// ProcessOne claims and runs a single job. The bool reports whether a job
// was claimed at all; handler failures are recorded on the job, not
// returned.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)

	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return false, nil
		}

		return false, err
	}

	start := time.Now()

	if w.prom != nil {
		w.prom.JobsInFlight.Inc()
	}

	err = w.execute(ctx, j)

	if w.prom != nil {
		w.prom.JobsInFlight.Dec()
	}

	if err != nil {
		result := w.handleFailure(ctx, j, err)
		w.observeJob(j.Type, result, time.Since(start))
		return true, nil
	}

	if err := w.repo.MarkDone(ctx, j.ID); err != nil {
		_ = w.repo.MarkFailed(ctx, j.ID, "mark_done_failed: "+err.Error())
		w.observeJob(j.Type, "failed", time.Since(start))
		return true, err
	}

	w.observeJob(j.Type, "done", time.Since(start))
	return true, nil
}

func (w *Worker) observeJob(jobType, result string, elapsed time.Duration) {
	if w.prom == nil {
		return
	}
	w.prom.JobResults.WithLabelValues(jobType, result).Inc()
	w.prom.JobDuration.WithLabelValues(jobType, result).Observe(elapsed.Seconds())
}

func (w *Worker) execute(ctx context.Context, j job.Job) error {
	decoded, err := jobs.DecodePayload(j)

	if err != nil {
		// a payload that cannot decode never will
		return fmt.Errorf("%w: %v", errPermanent, err)
	}

	switch p := decoded.(type) {
	case jobs.FormAlertPayload:
		return w.handleFormAlert(ctx, p)

	case jobs.FormExportPayload:
		return w.handleFormExport(ctx, p)

	default:
		return fmt.Errorf("%w: unhandled payload %T", errPermanent, decoded)
	}
}

// handleFailure decides between retry and burial and reports which.
func (w *Worker) handleFailure(ctx context.Context, j job.Job, execErr error) string {
	msg := execErr.Error()

	permanent := errors.Is(execErr, errPermanent) || errors.Is(execErr, form.ErrNotFound)

	if permanent || j.Attempts+1 >= j.MaxAttempts {
		if err := w.repo.MarkFailed(ctx, j.ID, msg); err != nil {
			w.log.Error("mark failed error", "job_id", j.ID, "err", err)
		}

		w.log.Error("job failed", "job_id", j.ID, "type", j.Type, "attempts", j.Attempts+1, "err", execErr)
		return "failed"
	}

	runAt := time.Now().UTC().Add(ExponentialBackoff(j.Attempts))

	if err := w.repo.Reschedule(ctx, j.ID, runAt, msg); err != nil {
		w.log.Error("reschedule error", "job_id", j.ID, "err", err)
	}

	w.log.Warn("job retry scheduled", "job_id", j.ID, "type", j.Type, "attempt", j.Attempts+1, "run_at", runAt)
	return "retry"
}
