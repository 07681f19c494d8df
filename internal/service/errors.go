package service

import (
	"errors"

	"github.com/booali9/obe-comiler-backend/internal/security"
)

var (
	ErrDomainRejected   = errors.New("only institutional email addresses are allowed")
	ErrBadCredentials   = errors.New("email or password is incorrect")
	ErrNotFound         = errors.New("no account found with that email address")
	ErrConflict         = errors.New("email is already in use")
	ErrInvalidOrExpired = errors.New("otp is invalid or has expired")
	ErrIncorrectOTP     = errors.New("otp is incorrect")
	ErrDeliveryFailed   = errors.New("could not send the email")
	ErrStoreUnavailable = errors.New("credential store unavailable")

	// hashing failures keep their identity from the security package
	ErrInvalidInput      = security.ErrInvalidInput
	ErrCorruptCredential = security.ErrCorruptCredential
)
