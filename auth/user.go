package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/woodshedapp/woodshed/kvstore"
)

const userKeyPrefix = "user:"

// User is the durable credential record for one account. The email is the
// primary key; the generated ID links sessions and per-user aggregates.
type User struct {
	ID                  string    `json:"id"`
	Email               string    `json:"email"`
	PasswordHash        string    `json:"password_hash"`
	Verified            bool      `json:"verified"`
	FailedLoginAttempts int       `json:"failed_login_attempts"`
	LockedUntil         time.Time `json:"locked_until,omitzero"`
	LastLoginAt         time.Time `json:"last_login_at,omitzero"`
	CreatedAt           time.Time `json:"created_at"`
}

// PublicUser is the projection returned to clients. It never carries the
// password hash or lockout bookkeeping.
type PublicUser struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Verified    bool      `json:"verified"`
	CreatedAt   time.Time `json:"created_at"`
	LastLoginAt time.Time `json:"last_login_at,omitzero"`
}

// Public returns the client-visible projection of u.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		Email:       u.Email,
		Verified:    u.Verified,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

func userKey(email string) string {
	return userKeyPrefix + strings.ToLower(email)
}

func (s *Service) loadUser(ctx context.Context, email string) (*User, error) {
	data, err := s.kv.Get(ctx, userKey(email))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("decoding user record: %w", err)
	}
	return &u, nil
}

func (s *Service) saveUser(ctx context.Context, u *User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encoding user record: %w", err)
	}
	if err := s.kv.Put(ctx, userKey(u.Email), data, 0); err != nil {
		return fmt.Errorf("saving user: %w", err)
	}
	return nil
}
