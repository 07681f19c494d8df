package user

import (
	"errors"
	"time"
)

const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already in use")
)

type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"` // never expose hash in JSON
	Name         string `json:"name"`
	Role         string `json:"role"`
	IsActive     bool   `json:"isActive"`

	PasswordChangedAt *time.Time `json:"-"`

	// reset state; a hash is only meaningful with its paired expiry
	OTPHash             *string    `json:"-"`
	OTPExpiresAt        *time.Time `json:"-"`
	ResetTokenHash      *string    `json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleTeacher
}
