package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPMailer sends plain-text mail over a configured SMTP relay.
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (m *SMTPMailer) SendOTP(ctx context.Context, to, name, otp string) error {
	subject := "Your password reset OTP (valid for 10 minutes)"

	body := fmt.Sprintf(
		"Hello %s,\r\n\r\nYour OTP for password reset is: %s\r\n\r\nThis OTP is valid for 10 minutes only.\r\nIf you didn't request this, please ignore this email.\r\n\r\nNED University\r\n",
		name, otp,
	)

	return m.send(ctx, to, subject, body)
}

func (m *SMTPMailer) SendFormAlert(ctx context.Context, alert FormAlert) error {
	subject := "New Form Submission: " + alert.CourseName

	var b strings.Builder
	fmt.Fprintf(&b, "A new course form has been submitted.\r\n\r\n")
	fmt.Fprintf(&b, "Teacher: %s (staff #%d)\r\n", alert.TeacherName, alert.StaffNumber)
	fmt.Fprintf(&b, "Course: %s (%s)\r\n", alert.CourseName, alert.CourseCode)
	fmt.Fprintf(&b, "Department: %s\r\n", alert.Department)
	fmt.Fprintf(&b, "Year/Semester: %d - %s\r\n", alert.Year, alert.Semester)
	fmt.Fprintf(&b, "Quizzes reported: %d\r\n", alert.QuizCount)
	fmt.Fprintf(&b, "Submitted at: %s\r\n", alert.SubmittedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "\r\nNED University - Automated Notification\r\n")

	return m.send(ctx, alert.To, subject, b.String())
}

func (m *SMTPMailer) SendExportReady(ctx context.Context, msg ExportReady) error {
	subject := "Your forms export is ready"

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\r\n\r\n", msg.Name)
	fmt.Fprintf(&b, "The forms export you requested is ready (%d rows).\r\n\r\n", msg.RowCount)
	fmt.Fprintf(&b, "Download (link expires): %s\r\n", msg.DownloadURL)
	fmt.Fprintf(&b, "Object key: %s\r\n", msg.ObjectKey)
	fmt.Fprintf(&b, "Generated at: %s\r\n", msg.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "\r\nNED University - Automated Notification\r\n")

	return m.send(ctx, msg.To, subject, b.String())
}

// send is synchronous; callers bound it with the context deadline by
// running it inside a timeout-guarded goroutine.
func (m *SMTPMailer) send(ctx context.Context, to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", m.host, m.port)

	msg := []byte(
		"From: " + m.from + "\r\n" +
			"To: " + to + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/plain; charset=\"utf-8\"\r\n" +
			"\r\n" +
			body,
	)

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	done := make(chan error, 1)

	go func() {
		done <- smtp.SendMail(addr, auth, envelopeFrom(m.from), []string{to}, msg)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// envelopeFrom strips a display name: "NED University <x@y>" -> "x@y".
func envelopeFrom(from string) string {
	open := strings.LastIndex(from, "<")
	close := strings.LastIndex(from, ">")

	if open >= 0 && close > open {
		return from[open+1 : close]
	}

	return from
}
