package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/booali9/obe-comiler-backend/internal/domain/form"
	"github.com/booali9/obe-comiler-backend/internal/domain/job"
	"github.com/booali9/obe-comiler-backend/internal/domain/user"
	"github.com/booali9/obe-comiler-backend/internal/jobs"
)

type FormStore interface {
	Create(ctx context.Context, f form.Form) error
	GetByID(ctx context.Context, id string) (form.Form, error)
	Delete(ctx context.Context, id string) error
	ListByTeacher(ctx context.Context, teacherID string, limit, offset int) ([]form.Form, error)
	ListAll(ctx context.Context, limit, offset int) ([]form.Form, error)
}

type JobStore interface {
	Create(ctx context.Context, req job.CreateRequest) (job.Job, error)
	GetByIdempotencyKey(ctx context.Context, key string) (job.Job, error)
}

type Presigner interface {
	PresignUpload(ctx context.Context, prefix string) (string, string, error)
	PresignDownload(ctx context.Context, key string) (string, error)
}

type FormService struct {
	forms FormStore
	queue JobStore
	store Presigner
	log   *slog.Logger

	storeTimeout time.Duration
}

func NewFormService(forms FormStore, queue JobStore, store Presigner, log *slog.Logger) *FormService {
	return &FormService{
		forms:        forms,
		queue:        queue,
		store:        store,
		log:          log,
		storeTimeout: 3 * time.Second,
	}
}

// Submit persists the form and enqueues the admin alert. The alert is
// best-effort: a queue hiccup must not lose an already saved submission.
func (s *FormService) Submit(ctx context.Context, req form.SubmitRequest) (form.Form, error) {
	f := form.NewFromSubmitRequest(req)

	cctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.forms.Create(cctx, f); err != nil {
		return form.Form{}, storeErr(err)
	}

	s.enqueueAlert(ctx, f.ID)

	return f, nil
}

func (s *FormService) enqueueAlert(ctx context.Context, formID string) {
	payload, err := jobs.EncodePayload(jobs.JobFormAlert, jobs.FormAlertPayload{FormID: formID})

	if err != nil {
		s.log.Error("encode alert payload failed", "form_id", formID, "err", err)
		return
	}

	key := "form_alert:" + formID

	cctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	_, err = s.queue.Create(cctx, job.CreateRequest{
		Type:           string(jobs.JobFormAlert),
		Payload:        payload,
		IdempotencyKey: &key,
	})

	if err != nil {
		// a resubmitted form may have queued its alert already
		if _, lookupErr := s.queue.GetByIdempotencyKey(cctx, key); lookupErr == nil {
			s.log.Debug("alert already queued", "form_id", formID)
			return
		}

		s.log.Error("enqueue alert failed", "form_id", formID, "err", err)
	}
}

// GetByID hides other teachers' forms behind not-found rather than a
// forbidden that confirms their existence.
func (s *FormService) GetByID(ctx context.Context, actorID, actorRole, id string) (form.Form, error) {
	cctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	f, err := s.forms.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, form.ErrNotFound) {
			return form.Form{}, form.ErrNotFound
		}

		return form.Form{}, storeErr(err)
	}

	if actorRole != user.RoleAdmin && f.TeacherID != actorID {
		return form.Form{}, form.ErrNotFound
	}

	return f, nil
}

// Delete removes a form the actor owns; admins may remove any form. The
// ownership check runs through GetByID so a foreign form reads as missing
// here too.
func (s *FormService) Delete(ctx context.Context, actorID, actorRole, id string) error {
	if _, err := s.GetByID(ctx, actorID, actorRole, id); err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.forms.Delete(cctx, id); err != nil {
		if errors.Is(err, form.ErrNotFound) {
			return form.ErrNotFound
		}

		return storeErr(err)
	}
	return nil
}

func (s *FormService) ListMine(ctx context.Context, teacherID string, limit, offset int) ([]form.Form, error) {
	cctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	out, err := s.forms.ListByTeacher(cctx, teacherID, limit, offset)

	if err != nil {
		return nil, storeErr(err)
	}
	return out, nil
}

func (s *FormService) ListAll(ctx context.Context, limit, offset int) ([]form.Form, error) {
	cctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	out, err := s.forms.ListAll(cctx, limit, offset)

	if err != nil {
		return nil, storeErr(err)
	}
	return out, nil
}

// PresignAttachmentUpload vends a direct-to-bucket PUT URL plus the key
// the client should echo back in its submission.
func (s *FormService) PresignAttachmentUpload(ctx context.Context) (string, string, error) {
	return s.store.PresignUpload(ctx, "attachments")
}

// AttachmentURL resolves one of a form's stored keys to a download URL.
func (s *FormService) AttachmentURL(ctx context.Context, actorID, actorRole, formID, kind string) (string, error) {
	f, err := s.GetByID(ctx, actorID, actorRole, formID)

	if err != nil {
		return "", err
	}

	var key *string

	switch kind {
	case "attendance":
		key = f.Attendance
	case "best":
		key = f.Assignments.Best
	case "average":
		key = f.Assignments.Average
	case "worst":
		key = f.Assignments.Worst
	default:
		return "", ErrInvalidInput
	}

	if key == nil || *key == "" {
		return "", form.ErrNotFound
	}

	return s.store.PresignDownload(ctx, *key)
}

// RequestExport enqueues a CSV snapshot of all forms.
func (s *FormService) RequestExport(ctx context.Context, requestedBy string) error {
	payload, err := jobs.EncodePayload(jobs.JobFormExport, jobs.FormExportPayload{
		RequestedBy: requestedBy,
		RequestedAt: time.Now().UTC(),
	})

	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if _, err := s.queue.Create(cctx, job.CreateRequest{
		Type:    string(jobs.JobFormExport),
		Payload: payload,
	}); err != nil {
		return storeErr(err)
	}
	return nil
}
