package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/woodshedapp/woodshed/kvstore"
)

const tokenKeyPrefix = "token:"

// TokenKind tags a token record with its single logical purpose. Every
// consumption site switches exhaustively over the kind so that adding a new
// one is a compile-visible event.
type TokenKind string

const (
	TokenVerification  TokenKind = "verification"
	TokenPasswordReset TokenKind = "password_reset"
	TokenSession       TokenKind = "session"
)

// TTL returns the store-level lifetime for tokens of this kind.
func (k TokenKind) TTL() time.Duration {
	switch k {
	case TokenVerification:
		return verificationTTL
	case TokenPasswordReset:
		return passwordResetTTL
	case TokenSession:
		return sessionTTL
	}
	panic(fmt.Sprintf("auth: unknown token kind %q", k))
}

// Token is the durable record behind an opaque token value. The store-level
// TTL matches ExpiresAt, and the embedded expiry is still re-checked
// defensively at every consumption site.
type Token struct {
	Value     string    `json:"-"`
	Kind      TokenKind `json:"kind"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`

	// Session-kind only.
	UserID     string `json:"user_id,omitempty"`
	CSRFSecret string `json:"csrf_secret,omitempty"`
	IPAddress  string `json:"ip_address,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
}

// Expired reports whether the token's embedded expiry has passed at now.
func (t *Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

func tokenKey(value string) string {
	return tokenKeyPrefix + value
}

// loadToken resolves value to its record and enforces kind and expiry.
// All failure modes collapse into ErrInvalidToken.
func (s *Service) loadToken(ctx context.Context, value string, want TokenKind) (*Token, error) {
	if value == "" {
		return nil, ErrInvalidToken
	}
	data, err := s.kv.Get(ctx, tokenKey(value))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("loading token: %w", err)
	}
	var t Token
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decoding token record: %w", err)
	}
	t.Value = value

	switch t.Kind {
	case TokenVerification, TokenPasswordReset, TokenSession:
		if t.Kind != want {
			return nil, ErrInvalidToken
		}
	default:
		return nil, ErrInvalidToken
	}
	if t.Expired(s.now()) {
		// The store should have dropped it already; delete early anyway.
		_ = s.kv.Delete(ctx, tokenKey(value))
		return nil, ErrInvalidToken
	}
	return &t, nil
}

// saveToken persists t with a store TTL equal to its remaining lifetime.
func (s *Service) saveToken(ctx context.Context, t *Token) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding token record: %w", err)
	}
	ttl := t.ExpiresAt.Sub(s.now())
	if err := s.kv.Put(ctx, tokenKey(t.Value), data, ttl); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	return nil
}

func (s *Service) deleteToken(ctx context.Context, value string) error {
	return s.kv.Delete(ctx, tokenKey(value))
}
