package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/booali9/obe-comiler-backend/internal/domain/user"
	"github.com/booali9/obe-comiler-backend/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, password_hash, name, role, is_active,
	       password_changed_at, otp_hash, otp_expires_at,
	       reset_token_hash, reset_token_expires_at,
	       created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&u.Role,
		&u.IsActive,
		&u.PasswordChangedAt,
		&u.OTPHash,
		&u.OTPExpiresAt,
		&u.ResetTokenHash,
		&u.ResetTokenExpiresAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User
	var err error

	op := "users.get_by_email"

	err = r.observe(op, func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+`
		FROM users
		WHERE email = $1`, email))
		return err
	})

	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User
	var err error

	op := "users.get_by_id"

	err = r.observe(op, func() error {
		u, err = scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+`
		FROM users
		WHERE id = $1`, id))
		return err
	})

	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, email, passwordHash, name, role string) (user.User, error) {
	var u user.User
	var err error

	op := "users.create"
	id := uuid.NewString()

	err = r.observe(op, func() error {
		u, err = scanUser(r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
			id, email, passwordHash, name, role))
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}

		return user.User{}, err
	}
	return u, nil
}

// UpdatePassword also wipes any outstanding OTP and reset-token state; a
// completed password change retires every in-flight reset for the account.
func (r *UsersRepo) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	var tag pgconn.CommandTag
	var err error

	op := "users.update_password"

	err = r.observe(op, func() error {
		tag, err = r.pool.Exec(ctx, `
		UPDATE users
		SET password_hash = $2,
		    password_changed_at = $3,
		    otp_hash = NULL,
		    otp_expires_at = NULL,
		    reset_token_hash = NULL,
		    reset_token_expires_at = NULL,
		    updated_at = NOW()
		WHERE id = $1
	`, id, passwordHash, changedAt)
		return err
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) SetOTP(ctx context.Context, id, otpHash string, expiresAt time.Time) error {
	var tag pgconn.CommandTag
	var err error

	op := "users.set_otp"

	err = r.observe(op, func() error {
		tag, err = r.pool.Exec(ctx, `
		UPDATE users
		SET otp_hash = $2,
		    otp_expires_at = $3,
		    updated_at = NOW()
		WHERE id = $1
	`, id, otpHash, expiresAt)
		return err
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

// ClearOTPIfMatches is the rollback used after a failed OTP delivery. The
// hash guard means a concurrently reissued OTP is left untouched, so a
// matched zero-row update is not an error.
func (r *UsersRepo) ClearOTPIfMatches(ctx context.Context, id, otpHash string) error {
	op := "users.clear_otp_if_matches"

	return r.observe(op, func() error {
		_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET otp_hash = NULL,
		    otp_expires_at = NULL,
		    updated_at = NOW()
		WHERE id = $1
		  AND otp_hash = $2
	`, id, otpHash)
		return err
	})
}

func (r *UsersRepo) ClearOTP(ctx context.Context, id string) error {
	var tag pgconn.CommandTag
	var err error

	op := "users.clear_otp"

	err = r.observe(op, func() error {
		tag, err = r.pool.Exec(ctx, `
		UPDATE users
		SET otp_hash = NULL,
		    otp_expires_at = NULL,
		    updated_at = NOW()
		WHERE id = $1
	`, id)
		return err
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	var tag pgconn.CommandTag
	var err error

	op := "users.set_reset_token"

	err = r.observe(op, func() error {
		tag, err = r.pool.Exec(ctx, `
		UPDATE users
		SET reset_token_hash = $2,
		    reset_token_expires_at = $3,
		    updated_at = NOW()
		WHERE id = $1
	`, id, tokenHash, expiresAt)
		return err
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

// Admin ops endpoints

func (r *UsersRepo) List(ctx context.Context, limit, offset int) ([]user.User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	if offset < 0 {
		offset = 0
	}

	var rows pgx.Rows
	var err error

	op := "users.admin.list"

	err = r.observe(op, func() error {
		rows, err = r.pool.Query(ctx,
			`SELECT `+userColumns+`
		FROM users
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`, limit, offset)
		return err
	})

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]user.User, 0, limit)

	for rows.Next() {
		var u user.User

		if scanErr := rows.Scan(
			&u.ID,
			&u.Email,
			&u.PasswordHash,
			&u.Name,
			&u.Role,
			&u.IsActive,
			&u.PasswordChangedAt,
			&u.OTPHash,
			&u.OTPExpiresAt,
			&u.ResetTokenHash,
			&u.ResetTokenExpiresAt,
			&u.CreatedAt,
			&u.UpdatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		out = append(out, u)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *UsersRepo) UpdateProfile(ctx context.Context, id string, name, role *string) (user.User, error) {
	var u user.User
	var err error

	op := "users.admin.update_profile"

	err = r.observe(op, func() error {
		u, err = scanUser(r.pool.QueryRow(ctx, `
		UPDATE users
		SET name = COALESCE($2, name),
		    role = COALESCE($3, role),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
			id, name, role))
		return err
	})

	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

// SetActive soft-deletes (or restores) an account. Deactivated users fail
// login and token checks but keep their submission history.
func (r *UsersRepo) SetActive(ctx context.Context, id string, active bool) error {
	var tag pgconn.CommandTag
	var err error

	op := "users.admin.set_active"

	err = r.observe(op, func() error {
		tag, err = r.pool.Exec(ctx, `
		UPDATE users
		SET is_active = $2,
		    updated_at = NOW()
		WHERE id = $1
	`, id, active)
		return err
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}
