package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/woodshedapp/woodshed/internal/util"
	"github.com/woodshedapp/woodshed/kvstore"
)

// LoginResult is returned once on a successful login. The CSRF secret is
// only ever handed out here and by CurrentUser; mutating requests must echo
// it back in a header.
type LoginResult struct {
	User       PublicUser
	Token      string
	CSRFSecret string
	ExpiresAt  time.Time
}

// SessionInfo describes the authenticated caller behind a session token.
type SessionInfo struct {
	User       PublicUser
	UserID     string
	CSRFSecret string
	ExpiresAt  time.Time
}

// RefreshResult reports the outcome of RefreshSession. When Rotated is
// false the existing token is still comfortably valid and nothing changed.
type RefreshResult struct {
	Rotated    bool
	Token      string
	CSRFSecret string
	ExpiresAt  time.Time
}

// Login validates credentials and drives the lockout state machine:
// failures 1..4 increment the counter, the 5th locks the account for the
// lockout window and zeroes the counter, and attempts during the window are
// refused before the password is even checked.
func (s *Service) Login(ctx context.Context, email, password, ip, userAgent string) (*LoginResult, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	u, err := s.loadUser(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	now := s.now()
	if now.Before(u.LockedUntil) {
		return nil, lockedError(u.LockedUntil, now)
	}
	if !u.Verified {
		return nil, ErrNotVerified
	}

	if !VerifyPassword(u.PasswordHash, password) {
		u.FailedLoginAttempts++
		if u.FailedLoginAttempts >= maxLoginFailures {
			u.LockedUntil = now.Add(lockoutWindow)
			// Reset so the count starts fresh after the lock expires.
			u.FailedLoginAttempts = 0
			s.logger.Info("account locked after repeated failures",
				slog.String("user_id", u.ID),
				slog.Time("locked_until", u.LockedUntil))
		}
		if err := s.saveUser(ctx, u); err != nil {
			return nil, err
		}
		return nil, ErrInvalidCredentials
	}

	u.FailedLoginAttempts = 0
	u.LockedUntil = time.Time{}
	u.LastLoginAt = now
	if err := s.saveUser(ctx, u); err != nil {
		return nil, err
	}

	token, err := s.issueSession(ctx, u, ip, userAgent, sessionTTL)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		User:       u.Public(),
		Token:      token.Value,
		CSRFSecret: token.CSRFSecret,
		ExpiresAt:  token.ExpiresAt,
	}, nil
}

func (s *Service) issueSession(ctx context.Context, u *User, ip, userAgent string, ttl time.Duration) (*Token, error) {
	value, err := util.RandomToken()
	if err != nil {
		return nil, fmt.Errorf("generating session token: %w", err)
	}
	secret, err := util.RandomToken()
	if err != nil {
		return nil, fmt.Errorf("generating csrf secret: %w", err)
	}
	now := s.now()
	token := &Token{
		Value:      value,
		Kind:       TokenSession,
		Email:      u.Email,
		UserID:     u.ID,
		CSRFSecret: secret,
		IPAddress:  ip,
		UserAgent:  userAgent,
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
	}
	if err := s.saveToken(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// Logout deletes the session token. Unknown or already-invalidated tokens
// are fine; logout is idempotent.
func (s *Service) Logout(ctx context.Context, value string) error {
	if value == "" {
		return nil
	}
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return s.deleteToken(ctx, value)
}

// CurrentUser resolves a session token to its user, returning the existing
// CSRF secret. It never mints a new secret on read.
func (s *Service) CurrentUser(ctx context.Context, value string) (*SessionInfo, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	t, err := s.loadToken(ctx, value, TokenSession)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	u, err := s.loadUser(ctx, t.Email)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return &SessionInfo{
		User:       u.Public(),
		UserID:     t.UserID,
		CSRFSecret: t.CSRFSecret,
		ExpiresAt:  t.ExpiresAt,
	}, nil
}

// RefreshSession rotates the session token when less than refreshThreshold
// of its lifetime remains: a replacement with a fresh CSRF secret and a
// refreshTTL extension is issued and the old token is deleted. Otherwise it
// is a no-op reporting success.
func (s *Service) RefreshSession(ctx context.Context, value, ip, userAgent string) (*RefreshResult, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	t, err := s.loadToken(ctx, value, TokenSession)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if t.ExpiresAt.Sub(s.now()) >= refreshThreshold {
		return &RefreshResult{Rotated: false, ExpiresAt: t.ExpiresAt}, nil
	}

	u, err := s.loadUser(ctx, t.Email)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	replacement, err := s.issueSession(ctx, u, ip, userAgent, refreshTTL)
	if err != nil {
		return nil, err
	}
	if err := s.deleteToken(ctx, value); err != nil {
		return nil, fmt.Errorf("rotating session token: %w", err)
	}
	return &RefreshResult{
		Rotated:    true,
		Token:      replacement.Value,
		CSRFSecret: replacement.CSRFSecret,
		ExpiresAt:  replacement.ExpiresAt,
	}, nil
}
