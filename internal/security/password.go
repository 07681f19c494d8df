package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidInput      = errors.New("password must not be empty")
	ErrCorruptCredential = errors.New("stored password hash is malformed")
)

// work factor matches what the stored user base was hashed with
const bcryptCost = 12

// HashPassword hashes a plain text password with bcrypt.
func HashPassword(plain string) (string, error) {
	if plain == "" {
		return "", ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// VerifyPassword compares a bcrypt hash with a plaintext password.
// A mismatch is (false, nil); only a malformed stored hash is an error.
func VerifyPassword(hash, plain string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))

	if err == nil {
		return true, nil
	}

	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}

	return false, ErrCorruptCredential
}
