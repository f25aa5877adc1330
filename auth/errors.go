package auth

import (
	"errors"
	"fmt"
	"time"
)

// Identity-flow errors deliberately carry generic messages; the detailed
// reason is logged server-side only.
var (
	ErrInvalidEmail = errors.New("invalid email address") // 400

	// ErrInvalidToken covers unknown, expired and wrong-kind tokens alike
	// so the response never reveals which check failed.
	ErrInvalidToken = errors.New("invalid or expired token") // 400

	// ErrInvalidCredentials is returned for both "no such user" and
	// "wrong password".
	ErrInvalidCredentials = errors.New("invalid email or password") // 400

	ErrNotVerified  = errors.New("email address not verified") // 400
	ErrUnauthorized = errors.New("authentication required")    // 401
)

// WeakPasswordError reports why a candidate password failed the policy.
type WeakPasswordError struct {
	Reason string
}

func (e *WeakPasswordError) Error() string {
	return "password rejected: " + e.Reason
}

// LockedError is returned while an account is inside its lockout window.
// The remaining duration is fixed at the instant the lock was checked, on
// the service's clock, so it stays consistent under an injected time source.
type LockedError struct {
	Until     time.Time
	remaining time.Duration
}

func lockedError(until, now time.Time) *LockedError {
	return &LockedError{Until: until, remaining: until.Sub(now)}
}

func (e *LockedError) Error() string {
	mins := int(e.RetryAfter().Minutes()) + 1
	return fmt.Sprintf("account locked; retry in %d minutes", mins)
}

// RetryAfter returns the remaining lockout duration, never negative.
func (e *LockedError) RetryAfter() time.Duration {
	if e.remaining < 0 {
		return 0
	}
	return e.remaining
}
