package mailer

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// LogMailer stands in for a real provider in dev and tests.
type LogMailer struct{}

func NewLogMailer() *LogMailer { return &LogMailer{} }

func (m *LogMailer) SendOTP(ctx context.Context, to, name, otp string) error {
	if err := simulateProvider(ctx); err != nil {
		return err
	}

	log.Printf("mail.password_reset_otp to=%s name=%s otp=%s", to, name, otp)
	return nil
}

func (m *LogMailer) SendFormAlert(ctx context.Context, alert FormAlert) error {
	if err := simulateProvider(ctx); err != nil {
		return err
	}

	log.Printf("mail.form_alert to=%s course=%s (%s) teacher=%s",
		alert.To, alert.CourseName, alert.CourseCode, alert.TeacherName,
	)
	return nil
}

func (m *LogMailer) SendExportReady(ctx context.Context, msg ExportReady) error {
	if err := simulateProvider(ctx); err != nil {
		return err
	}

	log.Printf("mail.export_ready to=%s rows=%d key=%s", msg.To, msg.RowCount, msg.ObjectKey)
	return nil
}

func simulateProvider(ctx context.Context) error {
	// Optional: simulate slow provider
	if msStr := os.Getenv("MAILER_SLEEP_MS"); msStr != "" {
		ms, _ := strconv.Atoi(msStr)
		if ms > 0 {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	// Optional: simulate provider outage
	if os.Getenv("MAILER_FAIL") == "1" {
		return fmt.Errorf("provider down (simulated)")
	}

	return nil
}
