package worker

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/booali9/obe-comiler-backend/internal/jobs"
	"github.com/booali9/obe-comiler-backend/internal/mailer"
)

type ObjectStore interface {
	PutObject(ctx context.Context, key, contentType string, body io.Reader) error
	PresignDownload(ctx context.Context, key string) (string, error)
}

// handleFormAlert reloads the form and mails the department admin. The
// payload only carries the form ID, so the alert always reflects current
// data.
func (w *Worker) handleFormAlert(ctx context.Context, p jobs.FormAlertPayload) error {
	f, err := w.forms.GetByID(ctx, p.FormID)

	if err != nil {
		return fmt.Errorf("load form %s: %w", p.FormID, err)
	}

	alert := mailer.FormAlert{
		To:          w.cfg.AdminEmail,
		TeacherName: f.TeacherName,
		StaffNumber: f.StaffNumber,
		Department:  f.Department,
		CourseName:  f.CourseName,
		CourseCode:  f.CourseCode,
		Year:        f.Year,
		Semester:    f.Semester,
		QuizCount:   len(f.Quizzes),
		SubmittedAt: f.SubmittedAt,
	}

	if err := w.mail.SendFormAlert(ctx, alert); err != nil {
		return fmt.Errorf("send alert for form %s: %w", p.FormID, err)
	}

	w.log.Info("form alert sent", "form_id", p.FormID, "request_id", p.RequestID)
	return nil
}

const exportPageSize = 200

// handleFormExport snapshots all submitted forms into a CSV object.
func (w *Worker) handleFormExport(ctx context.Context, p jobs.FormExportPayload) error {
	var buf bytes.Buffer

	cw := csv.NewWriter(&buf)

	header := []string{
		"id", "teacher_id", "teacher_name", "staff_number", "department",
		"course_name", "course_code", "year", "semester",
		"attendance_file", "quiz_count", "submitted_at",
	}

	if err := cw.Write(header); err != nil {
		return err
	}

	rows := 0

	for offset := 0; ; offset += exportPageSize {
		page, err := w.forms.ListAll(ctx, exportPageSize, offset)

		if err != nil {
			return fmt.Errorf("list forms at offset %d: %w", offset, err)
		}

		for _, f := range page {
			attendance := ""

			if f.Attendance != nil {
				attendance = *f.Attendance
			}

			row := []string{
				f.ID, f.TeacherID, f.TeacherName, strconv.Itoa(f.StaffNumber), f.Department,
				f.CourseName, f.CourseCode, strconv.Itoa(f.Year), f.Semester,
				attendance, strconv.Itoa(len(f.Quizzes)), f.SubmittedAt.Format(time.RFC3339),
			}

			if err := cw.Write(row); err != nil {
				return err
			}

			rows++
		}

		if len(page) < exportPageSize {
			break
		}
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return err
	}

	key := fmt.Sprintf("exports/forms-%s.csv", time.Now().UTC().Format("20060102-150405"))

	if err := w.store.PutObject(ctx, key, "text/csv", &buf); err != nil {
		return fmt.Errorf("upload export: %w", err)
	}

	w.log.Info("form export uploaded", "key", key, "rows", rows, "requested_by", p.RequestedBy, "request_id", p.RequestID)

	// The export object exists at this point; a failed notification is
	// logged, not retried, so the job never re-uploads a snapshot.
	w.notifyExportReady(ctx, p.RequestedBy, key, rows)

	return nil
}

func (w *Worker) notifyExportReady(ctx context.Context, requestedBy, key string, rows int) {
	u, err := w.users.GetByID(ctx, requestedBy)

	if err != nil {
		w.log.Warn("export requester lookup failed", "user_id", requestedBy, "err", err)
		return
	}

	url, err := w.store.PresignDownload(ctx, key)

	if err != nil {
		w.log.Warn("export presign failed", "key", key, "err", err)
		return
	}

	msg := mailer.ExportReady{
		To:          u.Email,
		Name:        u.Name,
		ObjectKey:   key,
		DownloadURL: url,
		RowCount:    rows,
		GeneratedAt: time.Now().UTC(),
	}

	if err := w.mail.SendExportReady(ctx, msg); err != nil {
		w.log.Warn("export notification failed", "to", u.Email, "err", err)
	}
}
