package form

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("form not found")

type Quiz struct {
	QuizNumber   int     `json:"quizNumber" binding:"required,min=1"`
	BestScore    float64 `json:"bestScore"`
	AverageScore float64 `json:"averageScore"`
	WorstScore   float64 `json:"worstScore"`
}

// Assignments holds storage keys for the three sampled submissions.
type Assignments struct {
	Best    *string `json:"best"`
	Average *string `json:"average"`
	Worst   *string `json:"worst"`
}

type Form struct {
	ID          string      `json:"id"`
	TeacherID   string      `json:"teacherId"`
	TeacherName string      `json:"teacherName"`
	StaffNumber int         `json:"staffNumber"`
	Department  string      `json:"department"`
	CourseName  string      `json:"courseName"`
	CourseCode  string      `json:"courseCode"`
	Year        int         `json:"year"`
	Semester    string      `json:"semester"`
	Attendance  *string     `json:"attendanceFile"`
	Quizzes     []Quiz      `json:"quizzes"`
	Assignments Assignments `json:"assignments"`
	SubmittedAt time.Time   `json:"submittedAt"`
}

type SubmitRequest struct {
	TeacherName string      `json:"teacherName" binding:"required"`
	StaffNumber int         `json:"staffNumber" binding:"required"`
	Department  string      `json:"department" binding:"required"`
	CourseName  string      `json:"courseName" binding:"required"`
	CourseCode  string      `json:"courseCode" binding:"required"`
	Year        int         `json:"year" binding:"required"`
	Semester    string      `json:"semester" binding:"required"`
	Attendance  *string     `json:"attendanceFile"`
	Quizzes     []Quiz      `json:"quizzes" binding:"dive"`
	Assignments Assignments `json:"assignments"`

	// set from the authenticated identity, never from the body
	TeacherID string `json:"-"`
}

func NewFromSubmitRequest(req SubmitRequest) Form {
	return Form{
		ID:          uuid.NewString(),
		TeacherID:   req.TeacherID,
		TeacherName: req.TeacherName,
		StaffNumber: req.StaffNumber,
		Department:  req.Department,
		CourseName:  req.CourseName,
		CourseCode:  req.CourseCode,
		Year:        req.Year,
		Semester:    req.Semester,
		Attendance:  req.Attendance,
		Quizzes:     req.Quizzes,
		Assignments: req.Assignments,
		SubmittedAt: time.Now().UTC(),
	}
}
