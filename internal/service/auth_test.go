package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/booali9/obe-comiler-backend/internal/auth"
	"github.com/booali9/obe-comiler-backend/internal/domain/user"
	"github.com/booali9/obe-comiler-backend/internal/mailer"
	"github.com/booali9/obe-comiler-backend/internal/security"
)

const testDomain = "@cloud.neduet.edu.pk"

// Fake credential store in the function-field style.

type fakeUserStore struct {
	getByEmailFn        func(ctx context.Context, email string) (user.User, error)
	getByIDFn           func(ctx context.Context, id string) (user.User, error)
	createFn            func(ctx context.Context, email, passwordHash, name, role string) (user.User, error)
	updatePasswordFn    func(ctx context.Context, id, passwordHash string, changedAt time.Time) error
	setOTPFn            func(ctx context.Context, id, otpHash string, expiresAt time.Time) error
	clearOTPIfMatchesFn func(ctx context.Context, id, otpHash string) error
	clearOTPFn          func(ctx context.Context, id string) error
	setResetTokenFn     func(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeUserStore) GetByID(ctx context.Context, id string) (user.User, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeUserStore) Create(ctx context.Context, email, passwordHash, name, role string) (user.User, error) {
	if f.createFn != nil {
		return f.createFn(ctx, email, passwordHash, name, role)
	}
	return user.User{}, nil
}

func (f *fakeUserStore) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	if f.updatePasswordFn != nil {
		return f.updatePasswordFn(ctx, id, passwordHash, changedAt)
	}
	return nil
}

func (f *fakeUserStore) SetOTP(ctx context.Context, id, otpHash string, expiresAt time.Time) error {
	if f.setOTPFn != nil {
		return f.setOTPFn(ctx, id, otpHash, expiresAt)
	}
	return nil
}

func (f *fakeUserStore) ClearOTPIfMatches(ctx context.Context, id, otpHash string) error {
	if f.clearOTPIfMatchesFn != nil {
		return f.clearOTPIfMatchesFn(ctx, id, otpHash)
	}
	return nil
}

func (f *fakeUserStore) ClearOTP(ctx context.Context, id string) error {
	if f.clearOTPFn != nil {
		return f.clearOTPFn(ctx, id)
	}
	return nil
}

func (f *fakeUserStore) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	if f.setResetTokenFn != nil {
		return f.setResetTokenFn(ctx, id, tokenHash, expiresAt)
	}
	return nil
}

type fakeMailer struct {
	sendOTPFn func(ctx context.Context, to, name, otp string) error
	alerts    int
}

func (f *fakeMailer) SendOTP(ctx context.Context, to, name, otp string) error {
	if f.sendOTPFn != nil {
		return f.sendOTPFn(ctx, to, name, otp)
	}
	return nil
}

func (f *fakeMailer) SendFormAlert(ctx context.Context, alert mailer.FormAlert) error {
	f.alerts++
	return nil
}

func (f *fakeMailer) SendExportReady(ctx context.Context, msg mailer.ExportReady) error {
	return nil
}

func newTestService(store *fakeUserStore, mail *fakeMailer) *AuthService {
	if mail == nil {
		mail = &fakeMailer{}
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := auth.NewManager("test-secret-key", time.Hour, 10*time.Minute)

	return NewAuthService(store, tokens, mail, log, testDomain)
}

func mustHash(t *testing.T, plain string) string {
	t.Helper()

	h, err := security.HashPassword(plain)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	return h
}

func activeUser(t *testing.T, password string) user.User {
	t.Helper()

	return user.User{
		ID:           "user-1",
		Email:        "alice" + testDomain,
		Name:         "Alice",
		Role:         user.RoleTeacher,
		IsActive:     true,
		PasswordHash: mustHash(t, password),
	}
}

func TestSignup(t *testing.T) {
	tests := []struct {
		name    string
		input   SignupInput
		setup   func(*fakeUserStore)
		wantErr error
		check   func(t *testing.T, u user.User)
	}{
		{
			name:  "success_defaults_to_teacher",
			input: SignupInput{Name: "Alice", Email: "alice@cloud.neduet.edu.pk", Password: "Secret123"},
			setup: func(f *fakeUserStore) {
				f.createFn = func(ctx context.Context, email, passwordHash, name, role string) (user.User, error) {
					if role != user.RoleTeacher {
						t.Fatalf("role %q, want teacher", role)
					}
					if passwordHash == "Secret123" || passwordHash == "" {
						t.Fatalf("password must be stored hashed")
					}
					return user.User{ID: "u1", Email: email, Name: name, Role: role, IsActive: true, PasswordHash: passwordHash}, nil
				}
			},
			check: func(t *testing.T, u user.User) {
				if u.PasswordHash != "" {
					t.Fatalf("password hash must be stripped from the result")
				}
				if u.Role != user.RoleTeacher {
					t.Fatalf("role %q, want teacher", u.Role)
				}
			},
		},
		{
			name:  "admin_caller_may_assign_admin_role",
			input: SignupInput{Name: "Bob", Email: "bob@cloud.neduet.edu.pk", Password: "Secret123", Role: user.RoleAdmin, ActorRole: user.RoleAdmin},
			setup: func(f *fakeUserStore) {
				f.createFn = func(ctx context.Context, email, passwordHash, name, role string) (user.User, error) {
					if role != user.RoleAdmin {
						t.Fatalf("role %q, want admin", role)
					}
					return user.User{ID: "u2", Email: email, Role: role}, nil
				}
			},
		},
		{
			name:  "non_admin_caller_cannot_assign_role",
			input: SignupInput{Name: "Eve", Email: "eve@cloud.neduet.edu.pk", Password: "Secret123", Role: user.RoleAdmin, ActorRole: user.RoleTeacher},
			setup: func(f *fakeUserStore) {
				f.createFn = func(ctx context.Context, email, passwordHash, name, role string) (user.User, error) {
					if role != user.RoleTeacher {
						t.Fatalf("role %q, want forced teacher", role)
					}
					return user.User{ID: "u3", Email: email, Role: role}, nil
				}
			},
		},
		{
			name:    "domain_rejected",
			input:   SignupInput{Name: "Mallory", Email: "mallory@gmail.com", Password: "Secret123"},
			wantErr: ErrDomainRejected,
		},
		{
			name:    "malformed_email_rejected",
			input:   SignupInput{Name: "X", Email: "not-an-email@cloud.neduet.edu.pk@", Password: "Secret123"},
			wantErr: ErrDomainRejected,
		},
		{
			name:    "empty_password",
			input:   SignupInput{Name: "Alice", Email: "alice@cloud.neduet.edu.pk", Password: ""},
			wantErr: ErrInvalidInput,
		},
		{
			name:  "duplicate_email",
			input: SignupInput{Name: "Alice", Email: "alice@cloud.neduet.edu.pk", Password: "Secret123"},
			setup: func(f *fakeUserStore) {
				f.createFn = func(ctx context.Context, email, passwordHash, name, role string) (user.User, error) {
					return user.User{}, user.ErrEmailTaken
				}
			},
			wantErr: ErrConflict,
		},
		{
			name:  "store_failure",
			input: SignupInput{Name: "Alice", Email: "alice@cloud.neduet.edu.pk", Password: "Secret123"},
			setup: func(f *fakeUserStore) {
				f.createFn = func(ctx context.Context, email, passwordHash, name, role string) (user.User, error) {
					return user.User{}, errors.New("connection refused")
				}
			},
			wantErr: ErrStoreUnavailable,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := &fakeUserStore{}

			if tt.setup != nil {
				tt.setup(store)
			}

			svc := newTestService(store, nil)

			u, err := svc.Signup(context.Background(), tt.input)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got err %v, want %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if tt.check != nil {
				tt.check(t, u)
			}
		})
	}
}

func TestLogin_UnifiedBadCredentials(t *testing.T) {
	existing := activeUser(t, "Secret123")

	tests := []struct {
		name     string
		email    string
		password string
		setup    func(*fakeUserStore)
		wantErr  error
	}{
		{
			name:     "wrong_domain_beats_everything",
			email:    "alice@gmail.com",
			password: "Secret123",
			wantErr:  ErrDomainRejected,
		},
		{
			name:     "unknown_user",
			email:    "ghost" + testDomain,
			password: "Secret123",
			wantErr:  ErrBadCredentials,
		},
		{
			name:     "wrong_password",
			email:    existing.Email,
			password: "WrongSecret",
			setup: func(f *fakeUserStore) {
				f.getByEmailFn = func(ctx context.Context, email string) (user.User, error) {
					return existing, nil
				}
			},
			wantErr: ErrBadCredentials,
		},
		{
			name:     "inactive_user",
			email:    existing.Email,
			password: "Secret123",
			setup: func(f *fakeUserStore) {
				f.getByEmailFn = func(ctx context.Context, email string) (user.User, error) {
					u := existing
					u.IsActive = false
					return u, nil
				}
			},
			wantErr: ErrBadCredentials,
		},
		{
			name:     "corrupt_stored_hash",
			email:    existing.Email,
			password: "Secret123",
			setup: func(f *fakeUserStore) {
				f.getByEmailFn = func(ctx context.Context, email string) (user.User, error) {
					u := existing
					u.PasswordHash = "garbage"
					return u, nil
				}
			},
			wantErr: ErrCorruptCredential,
		},
		{
			name:     "store_failure",
			email:    existing.Email,
			password: "Secret123",
			setup: func(f *fakeUserStore) {
				f.getByEmailFn = func(ctx context.Context, email string) (user.User, error) {
					return user.User{}, errors.New("timeout")
				}
			},
			wantErr: ErrStoreUnavailable,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := &fakeUserStore{}

			if tt.setup != nil {
				tt.setup(store)
			}

			svc := newTestService(store, nil)

			_, _, err := svc.Login(context.Background(), tt.email, tt.password)

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got err %v, want %v", err, tt.wantErr)
			}
		})
	}

	// unknown user and wrong password must read identically to the caller
	if ErrBadCredentials.Error() != "email or password is incorrect" {
		t.Fatalf("unified credentials message changed: %q", ErrBadCredentials.Error())
	}
}

func TestLogin_Success(t *testing.T) {
	existing := activeUser(t, "Secret123")

	store := &fakeUserStore{
		getByEmailFn: func(ctx context.Context, email string) (user.User, error) {
			return existing, nil
		},
	}

	svc := newTestService(store, nil)

	token, u, err := svc.Login(context.Background(), existing.Email, "Secret123")

	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if token == "" {
		t.Fatalf("expected a session token")
	}

	if u.PasswordHash != "" {
		t.Fatalf("password hash must be stripped")
	}

	claims, err := svc.tokens.VerifySessionToken(token)

	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}

	if claims.UserID != existing.ID {
		t.Fatalf("token subject %q, want %q", claims.UserID, existing.ID)
	}
}

func TestForgotPassword(t *testing.T) {
	existing := activeUser(t, "Secret123")

	t.Run("unknown_user_creates_no_otp_state", func(t *testing.T) {
		store := &fakeUserStore{
			setOTPFn: func(ctx context.Context, id, otpHash string, expiresAt time.Time) error {
				t.Fatalf("no OTP state may be created for an unknown user")
				return nil
			},
		}

		svc := newTestService(store, nil)

		err := svc.ForgotPassword(context.Background(), "ghost"+testDomain)

		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("got err %v, want ErrNotFound", err)
		}
	})

	t.Run("stores_hash_not_plaintext_and_mails_plaintext", func(t *testing.T) {
		var storedHash, mailedOTP string

		store := &fakeUserStore{
			getByEmailFn: func(ctx context.Context, email string) (user.User, error) {
				return existing, nil
			},
			setOTPFn: func(ctx context.Context, id, otpHash string, expiresAt time.Time) error {
				storedHash = otpHash
				return nil
			},
		}

		mail := &fakeMailer{
			sendOTPFn: func(ctx context.Context, to, name, otp string) error {
				mailedOTP = otp
				return nil
			},
		}

		svc := newTestService(store, mail)

		if err := svc.ForgotPassword(context.Background(), existing.Email); err != nil {
			t.Fatalf("forgot password failed: %v", err)
		}

		if mailedOTP == "" || storedHash == "" {
			t.Fatalf("expected both a mailed OTP and a stored hash")
		}

		if storedHash == mailedOTP {
			t.Fatalf("plaintext OTP must never be stored")
		}

		if auth.DigestToken(mailedOTP) != storedHash {
			t.Fatalf("stored hash is not the digest of the mailed OTP")
		}
	})

	t.Run("delivery_failure_rolls_back_the_issued_otp", func(t *testing.T) {
		var storedHash, clearedHash string

		store := &fakeUserStore{
			getByEmailFn: func(ctx context.Context, email string) (user.User, error) {
				return existing, nil
			},
			setOTPFn: func(ctx context.Context, id, otpHash string, expiresAt time.Time) error {
				storedHash = otpHash
				return nil
			},
			clearOTPIfMatchesFn: func(ctx context.Context, id, otpHash string) error {
				clearedHash = otpHash
				return nil
			},
		}

		mail := &fakeMailer{
			sendOTPFn: func(ctx context.Context, to, name, otp string) error {
				return errors.New("provider down")
			},
		}

		svc := newTestService(store, mail)

		err := svc.ForgotPassword(context.Background(), existing.Email)

		if !errors.Is(err, ErrDeliveryFailed) {
			t.Fatalf("got err %v, want ErrDeliveryFailed", err)
		}

		if clearedHash == "" {
			t.Fatalf("expected the OTP to be cleared after delivery failure")
		}

		// compare-and-clear must target exactly the OTP this call issued
		if clearedHash != storedHash {
			t.Fatalf("cleared hash %q differs from issued hash %q", clearedHash, storedHash)
		}
	})
}

func TestVerifyOTP(t *testing.T) {
	now := time.Now().UTC()

	plainOTP, otpHash, otpExpiry, err := auth.IssueOTP(now)

	if err != nil {
		t.Fatalf("issue otp failed: %v", err)
	}

	withOTP := func(hash *string, expiry *time.Time) user.User {
		u := activeUser(t, "Secret123")
		u.OTPHash = hash
		u.OTPExpiresAt = expiry
		return u
	}

	t.Run("success_clears_state_and_issues_reset_token", func(t *testing.T) {
		cleared := false
		var savedResetHash string

		u := withOTP(&otpHash, &otpExpiry)

		store := &fakeUserStore{
			getByEmailFn: func(ctx context.Context, email string) (user.User, error) {
				return u, nil
			},
			clearOTPFn: func(ctx context.Context, id string) error {
				cleared = true
				return nil
			},
			setResetTokenFn: func(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
				savedResetHash = tokenHash
				return nil
			},
		}

		svc := newTestService(store, nil)

		raw, err := svc.VerifyOTP(context.Background(), u.Email, plainOTP)

		if err != nil {
			t.Fatalf("verify failed: %v", err)
		}

		if !cleared {
			t.Fatalf("otp state must be cleared on success")
		}

		claims, err := svc.tokens.VerifyResetToken(raw)

		if err != nil {
			t.Fatalf("elevated token does not verify as reset scope: %v", err)
		}

		if _, err := svc.tokens.VerifySessionToken(raw); err == nil {
			t.Fatalf("elevated token must not be usable as a session token")
		}

		if savedResetHash != auth.DigestToken(claims.JTI) {
			t.Fatalf("stored reset hash does not match the issued token")
		}
	})

	t.Run("second_use_of_same_code_fails_invalid_or_expired", func(t *testing.T) {
		// after a successful verify the stored state is gone
		u := withOTP(nil, nil)

		store := &fakeUserStore{
			getByEmailFn: func(ctx context.Context, email string) (user.User, error) {
				return u, nil
			},
		}

		svc := newTestService(store, nil)

		_, err := svc.VerifyOTP(context.Background(), u.Email, plainOTP)

		if !errors.Is(err, ErrInvalidOrExpired) {
			t.Fatalf("got err %v, want ErrInvalidOrExpired", err)
		}
	})

	t.Run("expired_code", func(t *testing.T) {
		u := withOTP(&otpHash, &otpExpiry)

		store := &fakeUserStore{
			getByEmailFn: func(ctx context.Context, email string) (user.User, error) {
				return u, nil
			},
		}

		svc := newTestService(store, nil)
		svc.now = func() time.Time { return now.Add(10 * time.Minute) }

		_, err := svc.VerifyOTP(context.Background(), u.Email, plainOTP)

		if !errors.Is(err, ErrInvalidOrExpired) {
			t.Fatalf("got err %v, want ErrInvalidOrExpired at exactly +10m", err)
		}
	})

	t.Run("wrong_code", func(t *testing.T) {
		u := withOTP(&otpHash, &otpExpiry)

		store := &fakeUserStore{
			getByEmailFn: func(ctx context.Context, email string) (user.User, error) {
				return u, nil
			},
			clearOTPFn: func(ctx context.Context, id string) error {
				t.Fatalf("a wrong code must not clear the OTP")
				return nil
			},
		}

		svc := newTestService(store, nil)

		_, err := svc.VerifyOTP(context.Background(), u.Email, "000000")

		if !errors.Is(err, ErrIncorrectOTP) {
			t.Fatalf("got err %v, want ErrIncorrectOTP", err)
		}
	})

	t.Run("unknown_user", func(t *testing.T) {
		store := &fakeUserStore{}
		svc := newTestService(store, nil)

		_, err := svc.VerifyOTP(context.Background(), "ghost"+testDomain, plainOTP)

		if !errors.Is(err, ErrInvalidOrExpired) {
			t.Fatalf("got err %v, want ErrInvalidOrExpired", err)
		}
	})

	t.Run("wrong_domain", func(t *testing.T) {
		store := &fakeUserStore{}
		svc := newTestService(store, nil)

		_, err := svc.VerifyOTP(context.Background(), "alice@gmail.com", plainOTP)

		if !errors.Is(err, ErrDomainRejected) {
			t.Fatalf("got err %v, want ErrDomainRejected", err)
		}
	})
}

func TestResetPassword(t *testing.T) {
	existing := activeUser(t, "OldSecret1")

	issueReset := func(svc *AuthService) (jti string, expiresAt time.Time) {
		t.Helper()

		_, jti, expiresAt, err := svc.tokens.GenerateResetToken(existing.ID, existing.Email, existing.Role)

		if err != nil {
			t.Fatalf("generate reset token failed: %v", err)
		}
		return jti, expiresAt
	}

	t.Run("success_updates_hash_and_changed_at", func(t *testing.T) {
		var gotHash string
		var gotChangedAt time.Time

		store := &fakeUserStore{}
		svc := newTestService(store, nil)

		jti, expiresAt := issueReset(svc)
		resetHash := auth.DigestToken(jti)

		store.getByIDFn = func(ctx context.Context, id string) (user.User, error) {
			u := existing
			u.ResetTokenHash = &resetHash
			u.ResetTokenExpiresAt = &expiresAt
			return u, nil
		}
		store.updatePasswordFn = func(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
			gotHash = passwordHash
			gotChangedAt = changedAt
			return nil
		}

		token, err := svc.ResetPassword(context.Background(), existing.ID, jti, "NewSecret1")

		if err != nil {
			t.Fatalf("reset failed: %v", err)
		}

		if token == "" {
			t.Fatalf("expected a fresh session token")
		}

		ok, err := security.VerifyPassword(gotHash, "NewSecret1")

		if err != nil || !ok {
			t.Fatalf("stored hash does not verify against the new password")
		}

		// changedAt is backdated a second behind the actual update
		if !gotChangedAt.Before(time.Now().UTC().Add(-500 * time.Millisecond)) {
			t.Fatalf("changedAt %v is not backdated", gotChangedAt)
		}
	})

	t.Run("missing_reset_state", func(t *testing.T) {
		store := &fakeUserStore{
			getByIDFn: func(ctx context.Context, id string) (user.User, error) {
				return existing, nil
			},
		}
		svc := newTestService(store, nil)

		jti, _ := issueReset(svc)

		_, err := svc.ResetPassword(context.Background(), existing.ID, jti, "NewSecret1")

		if !errors.Is(err, ErrInvalidOrExpired) {
			t.Fatalf("got err %v, want ErrInvalidOrExpired", err)
		}
	})

	t.Run("mismatched_token", func(t *testing.T) {
		store := &fakeUserStore{}
		svc := newTestService(store, nil)

		_, expiresAt := issueReset(svc)
		otherHash := auth.DigestToken("some-other-jti")

		store.getByIDFn = func(ctx context.Context, id string) (user.User, error) {
			u := existing
			u.ResetTokenHash = &otherHash
			u.ResetTokenExpiresAt = &expiresAt
			return u, nil
		}

		jti2, _ := issueReset(svc)

		_, err := svc.ResetPassword(context.Background(), existing.ID, jti2, "NewSecret1")

		if !errors.Is(err, ErrInvalidOrExpired) {
			t.Fatalf("got err %v, want ErrInvalidOrExpired", err)
		}
	})

	t.Run("unknown_user", func(t *testing.T) {
		store := &fakeUserStore{}
		svc := newTestService(store, nil)

		_, err := svc.ResetPassword(context.Background(), "nope", "jti", "NewSecret1")

		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("got err %v, want ErrNotFound", err)
		}
	})
}

func TestChangePassword(t *testing.T) {
	existing := activeUser(t, "OldSecret1")

	t.Run("wrong_current_password", func(t *testing.T) {
		store := &fakeUserStore{
			getByIDFn: func(ctx context.Context, id string) (user.User, error) {
				return existing, nil
			},
			updatePasswordFn: func(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
				t.Fatalf("password must not be updated with a wrong current password")
				return nil
			},
		}

		svc := newTestService(store, nil)

		_, err := svc.ChangePassword(context.Background(), existing.ID, "WrongSecret", "NewSecret1")

		if !errors.Is(err, ErrBadCredentials) {
			t.Fatalf("got err %v, want ErrBadCredentials", err)
		}
	})

	t.Run("success_issues_token_valid_after_change", func(t *testing.T) {
		var changedAt time.Time

		store := &fakeUserStore{
			getByIDFn: func(ctx context.Context, id string) (user.User, error) {
				return existing, nil
			},
			updatePasswordFn: func(ctx context.Context, id, passwordHash string, at time.Time) error {
				changedAt = at
				return nil
			},
		}

		svc := newTestService(store, nil)

		newToken, err := svc.ChangePassword(context.Background(), existing.ID, "OldSecret1", "NewSecret1")

		if err != nil {
			t.Fatalf("change failed: %v", err)
		}

		newClaims, err := svc.tokens.VerifySessionToken(newToken)

		if err != nil {
			t.Fatalf("new token does not verify: %v", err)
		}

		// the backdated changedAt must not invalidate the token issued
		// by the change itself
		if newClaims.IssuedBefore(changedAt) {
			t.Fatalf("freshly issued token must remain valid after the change")
		}
	})

	t.Run("earlier_tokens_predate_the_change", func(t *testing.T) {
		var changedAt time.Time

		store := &fakeUserStore{
			getByIDFn: func(ctx context.Context, id string) (user.User, error) {
				return existing, nil
			},
			updatePasswordFn: func(ctx context.Context, id, passwordHash string, at time.Time) error {
				changedAt = at
				return nil
			},
		}

		svc := newTestService(store, nil)

		oldToken, err := svc.tokens.GenerateSessionToken(existing.ID, existing.Email, existing.Role)

		if err != nil {
			t.Fatalf("generate failed: %v", err)
		}

		oldClaims, err := svc.tokens.VerifySessionToken(oldToken)

		if err != nil {
			t.Fatalf("verify failed: %v", err)
		}

		// a change recorded well after the old token's iat
		svc.now = func() time.Time { return time.Now().UTC().Add(5 * time.Second) }

		if _, err := svc.ChangePassword(context.Background(), existing.ID, "OldSecret1", "NewSecret1"); err != nil {
			t.Fatalf("change failed: %v", err)
		}

		// the old token, while unexpired, now predates the password change
		if !oldClaims.IssuedBefore(changedAt) {
			t.Fatalf("old token should be invalidated by the password change")
		}
	})
}
