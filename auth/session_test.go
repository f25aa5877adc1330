package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginUnknownAccount(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Login(t.Context(), "nobody@example.com", "Aa1!aaaa", "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginSuccess(t *testing.T) {
	svc, mailer, _ := newTestService(t)
	user := registerVerified(t, svc, mailer, "alice@example.com", "Aa1!aaaa")

	result, err := svc.Login(t.Context(), "alice@example.com", "Aa1!aaaa", "203.0.113.7", "go-test")
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
	assert.NotEmpty(t, result.Token)
	assert.NotEmpty(t, result.CSRFSecret)
	assert.NotEqual(t, result.Token, result.CSRFSecret)

	info, err := svc.CurrentUser(t.Context(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, info.UserID)
	assert.Equal(t, result.CSRFSecret, info.CSRFSecret)
}

func TestLoginLockout(t *testing.T) {
	svc, mailer, clock := newTestService(t)
	registerVerified(t, svc, mailer, "alice@example.com", "Aa1!aaaa")
	ctx := t.Context()

	// Four failures: still just bad credentials.
	for i := 0; i < maxLoginFailures-1; i++ {
		_, err := svc.Login(ctx, "alice@example.com", "Wrong-pass-9", "", "")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// The fifth failure trips the lock. It still reports bad credentials;
	// the lock surfaces on the next attempt.
	_, err := svc.Login(ctx, "alice@example.com", "Wrong-pass-9", "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	var locked *LockedError
	_, err = svc.Login(ctx, "alice@example.com", "Aa1!aaaa", "", "")
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, lockoutWindow, locked.RetryAfter())

	// A locked attempt is refused before the password check and must not
	// extend the window. Retry-after follows the service clock, so after
	// ten injected minutes exactly twenty remain.
	until := locked.Until
	clock.Advance(10 * time.Minute)
	_, err = svc.Login(ctx, "alice@example.com", "Aa1!aaaa", "", "")
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, until, locked.Until)
	assert.Equal(t, lockoutWindow-10*time.Minute, locked.RetryAfter())

	// Once the window passes the correct password works and the slate is
	// clean.
	clock.Advance(lockoutWindow)
	_, err = svc.Login(ctx, "alice@example.com", "Aa1!aaaa", "", "")
	assert.NoError(t, err)
}

func TestLockCounterResetsAfterWindow(t *testing.T) {
	svc, mailer, clock := newTestService(t)
	registerVerified(t, svc, mailer, "alice@example.com", "Aa1!aaaa")
	ctx := t.Context()

	for i := 0; i < maxLoginFailures; i++ {
		_, err := svc.Login(ctx, "alice@example.com", "Wrong-pass-9", "", "")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
	clock.Advance(lockoutWindow + time.Minute)

	// One more failure after the window is failure number one, not six.
	_, err := svc.Login(ctx, "alice@example.com", "Wrong-pass-9", "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "alice@example.com", "Aa1!aaaa", "", "")
	assert.NoError(t, err)
}

func TestSuccessResetsFailureCount(t *testing.T) {
	svc, mailer, _ := newTestService(t)
	registerVerified(t, svc, mailer, "alice@example.com", "Aa1!aaaa")
	ctx := t.Context()

	for i := 0; i < maxLoginFailures-1; i++ {
		_, err := svc.Login(ctx, "alice@example.com", "Wrong-pass-9", "", "")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err := svc.Login(ctx, "alice@example.com", "Aa1!aaaa", "", "")
	require.NoError(t, err)

	// The counter restarted, so a single failure cannot lock.
	_, err = svc.Login(ctx, "alice@example.com", "Wrong-pass-9", "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "alice@example.com", "Aa1!aaaa", "", "")
	assert.NoError(t, err)
}

func TestLogoutIsIdempotent(t *testing.T) {
	svc, mailer, _ := newTestService(t)
	registerVerified(t, svc, mailer, "alice@example.com", "Aa1!aaaa")
	ctx := t.Context()

	result, err := svc.Login(ctx, "alice@example.com", "Aa1!aaaa", "", "")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, result.Token))
	require.NoError(t, svc.Logout(ctx, result.Token))
	require.NoError(t, svc.Logout(ctx, ""))
	require.NoError(t, svc.Logout(ctx, "never-issued"))

	_, err = svc.CurrentUser(ctx, result.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSessionExpiry(t *testing.T) {
	svc, mailer, clock := newTestService(t)
	registerVerified(t, svc, mailer, "alice@example.com", "Aa1!aaaa")

	result, err := svc.Login(t.Context(), "alice@example.com", "Aa1!aaaa", "", "")
	require.NoError(t, err)

	clock.Advance(sessionTTL + time.Minute)
	_, err = svc.CurrentUser(t.Context(), result.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRefreshSessionNoOpWhileFresh(t *testing.T) {
	svc, mailer, _ := newTestService(t)
	registerVerified(t, svc, mailer, "alice@example.com", "Aa1!aaaa")
	ctx := t.Context()

	result, err := svc.Login(ctx, "alice@example.com", "Aa1!aaaa", "", "")
	require.NoError(t, err)

	refreshed, err := svc.RefreshSession(ctx, result.Token, "", "")
	require.NoError(t, err)
	assert.False(t, refreshed.Rotated)
	assert.Equal(t, result.ExpiresAt, refreshed.ExpiresAt)

	// The original token is untouched.
	_, err = svc.CurrentUser(ctx, result.Token)
	assert.NoError(t, err)
}

func TestRefreshSessionRotatesNearExpiry(t *testing.T) {
	svc, mailer, clock := newTestService(t)
	registerVerified(t, svc, mailer, "alice@example.com", "Aa1!aaaa")
	ctx := t.Context()

	result, err := svc.Login(ctx, "alice@example.com", "Aa1!aaaa", "", "")
	require.NoError(t, err)

	clock.Advance(sessionTTL - refreshThreshold + time.Minute)

	refreshed, err := svc.RefreshSession(ctx, result.Token, "", "")
	require.NoError(t, err)
	assert.True(t, refreshed.Rotated)
	assert.NotEmpty(t, refreshed.Token)
	assert.NotEqual(t, result.Token, refreshed.Token)
	assert.NotEqual(t, result.CSRFSecret, refreshed.CSRFSecret)
	assert.Equal(t, clock.Now().Add(refreshTTL), refreshed.ExpiresAt)

	// Old token is gone, replacement works.
	_, err = svc.CurrentUser(ctx, result.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)
	info, err := svc.CurrentUser(ctx, refreshed.Token)
	require.NoError(t, err)
	assert.Equal(t, refreshed.CSRFSecret, info.CSRFSecret)
}

func TestRefreshSessionRejectsInvalidToken(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.RefreshSession(t.Context(), "never-issued", "", "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestUnverifiedAccountCannotLogin(t *testing.T) {
	// CompleteRegistration marks accounts verified, so exercise the guard
	// directly through a stored user record.
	svc, mailer, _ := newTestService(t)
	ctx := t.Context()

	registerVerified(t, svc, mailer, "alice@example.com", "Aa1!aaaa")
	u, err := svc.loadUser(ctx, "alice@example.com")
	require.NoError(t, err)
	u.Verified = false
	require.NoError(t, svc.saveUser(ctx, u))

	_, err = svc.Login(ctx, "alice@example.com", "Aa1!aaaa", "", "")
	assert.ErrorIs(t, err, ErrNotVerified)
}
