package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/booali9/obe-comiler-backend/internal/domain/form"
	"github.com/booali9/obe-comiler-backend/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FormsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewFormsRepo(pool *pgxpool.Pool, prom *observability.Prom) *FormsRepo {
	return &FormsRepo{pool: pool, prom: prom}
}

func (r *FormsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *FormsRepo) Create(ctx context.Context, f form.Form) error {
	quizzes, err := json.Marshal(f.Quizzes)

	if err != nil {
		return fmt.Errorf("encode quizzes: %w", err)
	}

	assignments, err := json.Marshal(f.Assignments)

	if err != nil {
		return fmt.Errorf("encode assignments: %w", err)
	}

	op := "forms.create"

	return r.observe(op, func() error {
		_, err := r.pool.Exec(ctx, `
		INSERT INTO forms (
			id, teacher_id, teacher_name, staff_number, department,
			course_name, course_code, year, semester,
			attendance_file, quizzes, assignments, submitted_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13
		)
	`, f.ID, f.TeacherID, f.TeacherName, f.StaffNumber, f.Department,
			f.CourseName, f.CourseCode, f.Year, f.Semester,
			f.Attendance, quizzes, assignments, f.SubmittedAt)
		return err
	})
}

func scanForm(row pgx.Row) (form.Form, error) {
	var f form.Form
	var quizzes, assignments []byte

	err := row.Scan(
		&f.ID,
		&f.TeacherID,
		&f.TeacherName,
		&f.StaffNumber,
		&f.Department,
		&f.CourseName,
		&f.CourseCode,
		&f.Year,
		&f.Semester,
		&f.Attendance,
		&quizzes,
		&assignments,
		&f.SubmittedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return form.Form{}, form.ErrNotFound
		}

		return form.Form{}, err
	}

	if err := json.Unmarshal(quizzes, &f.Quizzes); err != nil {
		return form.Form{}, fmt.Errorf("decode quizzes: %w", err)
	}

	if err := json.Unmarshal(assignments, &f.Assignments); err != nil {
		return form.Form{}, fmt.Errorf("decode assignments: %w", err)
	}
	return f, nil
}

const formColumns = `id, teacher_id, teacher_name, staff_number, department,
	       course_name, course_code, year, semester,
	       attendance_file, quizzes, assignments, submitted_at`

func (r *FormsRepo) GetByID(ctx context.Context, id string) (form.Form, error) {
	var f form.Form
	var err error

	op := "forms.get_by_id"

	err = r.observe(op, func() error {
		f, err = scanForm(r.pool.QueryRow(ctx,
			`SELECT `+formColumns+`
		FROM forms
		WHERE id = $1`, id))
		return err
	})

	if err != nil {
		return form.Form{}, err
	}
	return f, nil
}

func (r *FormsRepo) list(ctx context.Context, op, query string, args ...any) ([]form.Form, error) {
	var rows pgx.Rows
	var err error

	err = r.observe(op, func() error {
		rows, err = r.pool.Query(ctx, query, args...)
		return err
	})

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]form.Form, 0)

	for rows.Next() {
		f, scanErr := scanForm(rows)

		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, f)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *FormsRepo) Delete(ctx context.Context, id string) error {
	op := "forms.delete"

	return r.observe(op, func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM forms WHERE id = $1`, id)

		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return form.ErrNotFound
		}
		return nil
	})
}

func (r *FormsRepo) ListByTeacher(ctx context.Context, teacherID string, limit, offset int) ([]form.Form, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	if offset < 0 {
		offset = 0
	}

	return r.list(ctx, "forms.list_by_teacher",
		`SELECT `+formColumns+`
		FROM forms
		WHERE teacher_id = $1
		ORDER BY submitted_at DESC, id DESC
		LIMIT $2 OFFSET $3`, teacherID, limit, offset)
}

func (r *FormsRepo) ListAll(ctx context.Context, limit, offset int) ([]form.Form, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	if offset < 0 {
		offset = 0
	}

	return r.list(ctx, "forms.admin.list_all",
		`SELECT `+formColumns+`
		FROM forms
		ORDER BY submitted_at DESC, id DESC
		LIMIT $1 OFFSET $2`, limit, offset)
}
