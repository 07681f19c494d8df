package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/booali9/obe-comiler-backend/internal/auth"
	"github.com/booali9/obe-comiler-backend/internal/domain/user"
	"github.com/booali9/obe-comiler-backend/internal/mailer"
	"github.com/booali9/obe-comiler-backend/internal/security"
)

// UserStore is the credential-store boundary. Implementations must return
// user.ErrNotFound for missing users and user.ErrEmailTaken on duplicates.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Create(ctx context.Context, email, passwordHash, name, role string) (user.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error
	SetOTP(ctx context.Context, id, otpHash string, expiresAt time.Time) error
	// ClearOTPIfMatches only clears when the stored hash equals the given
	// one, so a rollback never clobbers a newer concurrently issued OTP.
	ClearOTPIfMatches(ctx context.Context, id, otpHash string) error
	ClearOTP(ctx context.Context, id string) error
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
}

type AuthService struct {
	users  UserStore
	tokens *auth.Manager
	mail   mailer.Mailer
	log    *slog.Logger

	emailDomain  string
	storeTimeout time.Duration
	mailTimeout  time.Duration
	now          func() time.Time
}

func NewAuthService(users UserStore, tokens *auth.Manager, mail mailer.Mailer, log *slog.Logger, emailDomain string) *AuthService {
	return &AuthService{
		users:        users,
		tokens:       tokens,
		mail:         mail,
		log:          log,
		emailDomain:  emailDomain,
		storeTimeout: 3 * time.Second,
		mailTimeout:  5 * time.Second,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

type SignupInput struct {
	Name     string
	Email    string
	Password string
	Role     string
	// role of the authenticated caller, empty for anonymous signups
	ActorRole string
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (user.User, error) {
	email, err := s.checkEmail(in.Email)

	if err != nil {
		return user.User{}, err
	}

	// only an admin may assign a role; everyone else gets teacher
	role := user.RoleTeacher

	if in.Role != "" && in.ActorRole == user.RoleAdmin && user.ValidRole(in.Role) {
		role = in.Role
	}

	hash, err := security.HashPassword(in.Password)

	if err != nil {
		return user.User{}, err
	}

	cctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	u, err := s.users.Create(cctx, email, hash, strings.TrimSpace(in.Name), role)

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return user.User{}, ErrConflict
		}

		return user.User{}, storeErr(err)
	}

	u.PasswordHash = ""

	return u, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, user.User, error) {
	email, err := s.checkEmail(email)

	if err != nil {
		return "", user.User{}, err
	}

	cctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	u, err := s.users.GetByEmail(cctx, email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// indistinguishable from a wrong password
			return "", user.User{}, ErrBadCredentials
		}

		return "", user.User{}, storeErr(err)
	}

	if !u.IsActive {
		return "", user.User{}, ErrBadCredentials
	}

	ok, err := security.VerifyPassword(u.PasswordHash, password)

	if err != nil {
		return "", user.User{}, err
	}

	if !ok {
		return "", user.User{}, ErrBadCredentials
	}

	token, err := s.tokens.GenerateSessionToken(u.ID, u.Email, u.Role)

	if err != nil {
		return "", user.User{}, err
	}

	u.PasswordHash = ""

	return token, u, nil
}

func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email, err := s.checkEmail(email)

	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	u, err := s.users.GetByEmail(cctx, email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrNotFound
		}

		return storeErr(err)
	}

	plain, hash, expiresAt, err := auth.IssueOTP(s.now())

	if err != nil {
		return err
	}

	if err := s.users.SetOTP(cctx, u.ID, hash, expiresAt); err != nil {
		return storeErr(err)
	}

	mctx, mcancel := context.WithTimeout(ctx, s.mailTimeout)
	defer mcancel()

	if err := s.mail.SendOTP(mctx, u.Email, u.Name, plain); err != nil {
		// the user must not be left with a live but unsent OTP; only clear
		// the OTP this call issued
		rctx, rcancel := context.WithTimeout(context.Background(), s.storeTimeout)
		defer rcancel()

		if clearErr := s.users.ClearOTPIfMatches(rctx, u.ID, hash); clearErr != nil {
			s.log.Error("otp rollback failed", "user_id", u.ID, "err", clearErr)
		}

		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	return nil
}

func (s *AuthService) VerifyOTP(ctx context.Context, email, otp string) (string, error) {
	email, err := s.checkEmail(email)

	if err != nil {
		return "", err
	}

	cctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	u, err := s.users.GetByEmail(cctx, email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// no user-enumeration signal on the reset flow either
			return "", ErrInvalidOrExpired
		}

		return "", storeErr(err)
	}

	now := s.now()

	if u.OTPHash == nil || u.OTPExpiresAt == nil || !u.OTPExpiresAt.After(now) {
		return "", ErrInvalidOrExpired
	}

	if !auth.VerifyOTP(otp, u.OTPHash, u.OTPExpiresAt, now) {
		return "", ErrIncorrectOTP
	}

	// consume the OTP before handing out anything
	if err := s.users.ClearOTP(cctx, u.ID); err != nil {
		return "", storeErr(err)
	}

	raw, jti, expiresAt, err := s.tokens.GenerateResetToken(u.ID, u.Email, u.Role)

	if err != nil {
		return "", err
	}

	// record the elevated token so completing the reset consumes it
	if err := s.users.SetResetToken(cctx, u.ID, auth.DigestToken(jti), expiresAt); err != nil {
		return "", storeErr(err)
	}

	return raw, nil
}

func (s *AuthService) ResetPassword(ctx context.Context, userID, tokenJTI, newPassword string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	u, err := s.users.GetByID(cctx, userID)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return "", ErrNotFound
		}

		return "", storeErr(err)
	}

	now := s.now()

	if u.ResetTokenHash == nil || u.ResetTokenExpiresAt == nil || !u.ResetTokenExpiresAt.After(now) {
		return "", ErrInvalidOrExpired
	}

	if auth.DigestToken(tokenJTI) != *u.ResetTokenHash {
		return "", ErrInvalidOrExpired
	}

	return s.updatePassword(cctx, u, newPassword)
}

func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	u, err := s.users.GetByID(cctx, userID)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return "", ErrNotFound
		}

		return "", storeErr(err)
	}

	ok, err := security.VerifyPassword(u.PasswordHash, currentPassword)

	if err != nil {
		return "", err
	}

	if !ok {
		return "", ErrBadCredentials
	}

	return s.updatePassword(cctx, u, newPassword)
}

// updatePassword re-hashes, records passwordChangedAt, clears all reset
// state, and issues a fresh session token.
func (s *AuthService) updatePassword(ctx context.Context, u user.User, newPassword string) (string, error) {
	hash, err := security.HashPassword(newPassword)

	if err != nil {
		return "", err
	}

	// backdate by one second so a token minted in the same second as the
	// change is still rejected
	changedAt := s.now().Add(-time.Second)

	if err := s.users.UpdatePassword(ctx, u.ID, hash, changedAt); err != nil {
		return "", storeErr(err)
	}

	return s.tokens.GenerateSessionToken(u.ID, u.Email, u.Role)
}

func (s *AuthService) checkEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if _, err := mail.ParseAddress(email); err != nil {
		return "", ErrDomainRejected
	}

	if !strings.HasSuffix(email, s.emailDomain) {
		return "", ErrDomainRejected
	}

	return email, nil
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
