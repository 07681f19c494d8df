package mailer

import (
	"context"
	"time"
)

// FormAlert is the admin notification payload for a submitted course form.
type FormAlert struct {
	To          string
	TeacherName string
	StaffNumber int
	Department  string
	CourseName  string
	CourseCode  string
	Year        int
	Semester    string
	QuizCount   int
	SubmittedAt time.Time
}

// ExportReady tells the requesting admin where their CSV snapshot landed.
type ExportReady struct {
	To          string
	Name        string
	ObjectKey   string
	DownloadURL string
	RowCount    int
	GeneratedAt time.Time
}

type Mailer interface {
	SendOTP(ctx context.Context, to, name, otp string) error
	SendFormAlert(ctx context.Context, alert FormAlert) error
	SendExportReady(ctx context.Context, msg ExportReady) error
}
