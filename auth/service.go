// Package auth implements the identity subsystem: registration with email
// verification, credential login with brute-force lockout, opaque session
// tokens carrying a CSRF secret, and password reset. All durable state lives
// in a kvstore.Store; token records expire at the store level and are
// re-checked in-app.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/woodshedapp/woodshed/internal/util"
	"github.com/woodshedapp/woodshed/kvstore"
	outmail "github.com/woodshedapp/woodshed/mail"
)

const (
	verificationTTL  = 24 * time.Hour
	passwordResetTTL = 1 * time.Hour

	// sessionTTL is the lifetime of a freshly issued login session.
	// refreshTTL is the extension granted by a refresh; the two are
	// independent knobs, not a ratio.
	sessionTTL       = 7 * 24 * time.Hour
	refreshTTL       = 2 * time.Hour
	refreshThreshold = 30 * time.Minute

	maxLoginFailures = 5
	lockoutWindow    = 30 * time.Minute

	// enumPadDelay is the minimum wall time for enumeration-sensitive
	// flows, so "account exists" and "account missing" take the same time.
	enumPadDelay = 300 * time.Millisecond

	// storeTimeout bounds every durable-store round trip.
	storeTimeout = 5 * time.Second
)

// Service drives the registration, login and password-reset flows.
type Service struct {
	kv      kvstore.Store
	mailer  outmail.Sender
	logger  *slog.Logger
	baseURL string

	// now and padDelay are swapped out in tests.
	now      func() time.Time
	padDelay time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the time source, letting tests drive lockout and
// expiry windows deterministically.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPadDelay overrides the enumeration timing pad.
func WithPadDelay(d time.Duration) Option {
	return func(s *Service) { s.padDelay = d }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService creates the identity service. baseURL is the externally
// reachable origin embedded in verification and reset links.
func NewService(kv kvstore.Store, mailer outmail.Sender, baseURL string, opts ...Option) *Service {
	s := &Service{
		kv:       kv,
		mailer:   mailer,
		baseURL:  strings.TrimRight(baseURL, "/"),
		now:      util.Now,
		padDelay: enumPadDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// opCtx bounds a flow's durable-store work. No store call may block
// indefinitely; a blown deadline surfaces as a transient error upstream.
func (s *Service) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, storeTimeout)
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// Register starts registration for email. The response is identical whether
// or not an account already exists, so the endpoint cannot be used to probe
// for accounts. Only a mail transport failure is surfaced.
func (s *Service) Register(ctx context.Context, email string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	email = strings.TrimSpace(email)
	if !validEmail(email) {
		return ErrInvalidEmail
	}

	if _, err := s.loadUser(ctx, email); err == nil {
		// Existing account: report success without sending anything.
		s.logger.Debug("registration for existing account suppressed")
		return nil
	} else if !errors.Is(err, kvstore.ErrNotFound) {
		return err
	}

	value, err := util.RandomToken()
	if err != nil {
		return fmt.Errorf("generating verification token: %w", err)
	}
	now := s.now()
	token := &Token{
		Value:     value,
		Kind:      TokenVerification,
		Email:     strings.ToLower(email),
		ExpiresAt: now.Add(verificationTTL),
		CreatedAt: now,
	}
	if err := s.saveToken(ctx, token); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/verify-email?token=%s", s.baseURL, value)
	msg := outmail.Message{
		To:      email,
		Subject: "Confirm your Woodshed account",
		HTML:    fmt.Sprintf(`<p>Welcome to Woodshed! <a href="%s">Confirm your email address</a> to finish signing up. The link is valid for 24 hours.</p>`, link),
		Text:    fmt.Sprintf("Welcome to Woodshed! Confirm your email address within 24 hours: %s", link),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("sending verification mail: %w", err)
	}
	return nil
}

// VerifyToken checks that a verification link is still good. It does not
// consume the token; CompleteRegistration does.
func (s *Service) VerifyToken(ctx context.Context, value string) (string, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	t, err := s.loadToken(ctx, value, TokenVerification)
	if err != nil {
		return "", err
	}
	return t.Email, nil
}

// CompleteRegistration finalizes an account: it re-validates the token,
// enforces the password policy, creates the credential record and consumes
// the token (single use).
func (s *Service) CompleteRegistration(ctx context.Context, value, password string) (*PublicUser, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	t, err := s.loadToken(ctx, value, TokenVerification)
	if err != nil {
		return nil, err
	}
	if err := CheckPassword(password); err != nil {
		return nil, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u := &User{
		ID:           uuid.NewString(),
		Email:        t.Email,
		PasswordHash: hash,
		Verified:     true,
		CreatedAt:    s.now(),
	}
	if err := s.saveUser(ctx, u); err != nil {
		return nil, err
	}
	if err := s.deleteToken(ctx, value); err != nil {
		return nil, fmt.Errorf("consuming verification token: %w", err)
	}

	pub := u.Public()
	return &pub, nil
}

// ForgotPassword issues a reset token when the account exists. The response
// and, thanks to the timing pad, the response time are the same either way.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	start := time.Now()
	defer func() {
		if remaining := s.padDelay - time.Since(start); remaining > 0 {
			time.Sleep(remaining)
		}
	}()

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	email = strings.TrimSpace(email)
	if !validEmail(email) {
		return ErrInvalidEmail
	}

	u, err := s.loadUser(ctx, email)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil
		}
		return err
	}

	value, err := util.RandomToken()
	if err != nil {
		return fmt.Errorf("generating reset token: %w", err)
	}
	now := s.now()
	token := &Token{
		Value:     value,
		Kind:      TokenPasswordReset,
		Email:     u.Email,
		ExpiresAt: now.Add(passwordResetTTL),
		CreatedAt: now,
	}
	if err := s.saveToken(ctx, token); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, value)
	msg := outmail.Message{
		To:      u.Email,
		Subject: "Reset your Woodshed password",
		HTML:    fmt.Sprintf(`<p><a href="%s">Reset your password</a>. The link is valid for one hour. If you did not request this, ignore this mail.</p>`, link),
		Text:    fmt.Sprintf("Reset your password within one hour: %s", link),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("sending reset mail: %w", err)
	}
	return nil
}

// ResetPassword sets a new password from a reset token, clears the lockout
// bookkeeping and consumes the token.
func (s *Service) ResetPassword(ctx context.Context, value, password string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	t, err := s.loadToken(ctx, value, TokenPasswordReset)
	if err != nil {
		return err
	}
	if err := CheckPassword(password); err != nil {
		return err
	}

	u, err := s.loadUser(ctx, t.Email)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	u.PasswordHash = hash
	u.FailedLoginAttempts = 0
	u.LockedUntil = time.Time{}
	if err := s.saveUser(ctx, u); err != nil {
		return err
	}
	if err := s.deleteToken(ctx, value); err != nil {
		return fmt.Errorf("consuming reset token: %w", err)
	}
	return nil
}
