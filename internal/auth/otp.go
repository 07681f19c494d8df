package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"time"
)

// OTPs and reset tokens share a ten minute lifetime.
const OTPTTL = 10 * time.Minute

// DigestToken is the fast one-way digest used for OTPs and reset tokens.
// These are short-lived, compared by hash equality only, so the slow
// interactive password hash would be wasted on them.
func DigestToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// IssueOTP returns a 6-digit code drawn uniformly from [100000, 999999],
// its digest, and its expiry.
func IssueOTP(now time.Time) (plain string, hash string, expiresAt time.Time, err error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))

	if err != nil {
		return "", "", time.Time{}, err
	}

	code := n.Int64() + 100000
	plain = big.NewInt(code).String()

	return plain, DigestToken(plain), now.Add(OTPTTL), nil
}

// IssueResetToken returns a random 32-byte hex token, its digest, and expiry.
func IssueResetToken(now time.Time) (plain string, hash string, expiresAt time.Time, err error) {
	buf := make([]byte, 32)

	_, err = rand.Read(buf)

	if err != nil {
		return "", "", time.Time{}, err
	}

	plain = hex.EncodeToString(buf)

	return plain, DigestToken(plain), now.Add(OTPTTL), nil
}

// VerifyOTP fails closed: an absent hash, an absent or elapsed expiry, or a
// digest mismatch all return false. expiresAt <= now counts as expired.
func VerifyOTP(candidate string, storedHash *string, storedExpiry *time.Time, now time.Time) bool {
	if storedHash == nil || *storedHash == "" {
		return false
	}

	if storedExpiry == nil || !storedExpiry.After(now) {
		return false
	}

	return DigestToken(candidate) == *storedHash
}
