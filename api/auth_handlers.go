package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/woodshedapp/woodshed/auth"
)

const (
	registerMessage = "If the address is valid, a confirmation mail is on its way."
	forgotMessage   = "If an account exists for that address, a reset mail is on its way."
)

// Register handles POST /auth/register. The response body is identical for
// new and already-registered addresses.
func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[RegisterRequest](w, r)
	if !ok {
		return
	}
	if err := a.auth.Register(r.Context(), req.Email); err != nil {
		a.audit.logFailure(AuditRegister, r, err.Error())
		mapError(w, err)
		return
	}
	a.audit.log(AuditRegister, r)
	writeJSON(w, http.StatusOK, MessageResponse{Message: registerMessage})
}

// VerifyEmail handles POST /auth/verify-email. It checks the link without
// consuming it, so the page can be reloaded before the password is chosen.
func (a *API) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[VerifyEmailRequest](w, r)
	if !ok {
		return
	}
	email, err := a.auth.VerifyToken(r.Context(), req.Token)
	if err != nil {
		a.audit.logFailure(AuditEmailVerified, r, "invalid verification token")
		mapError(w, err)
		return
	}
	a.audit.log(AuditEmailVerified, r)
	writeJSON(w, http.StatusOK, VerifyEmailResponse{Email: email})
}

// CompleteRegistration handles POST /auth/complete-registration.
func (a *API) CompleteRegistration(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[CompleteRegistrationRequest](w, r)
	if !ok {
		return
	}
	user, err := a.auth.CompleteRegistration(r.Context(), req.Token, req.Password)
	if err != nil {
		a.audit.logFailure(AuditRegistrationCompleted, r, err.Error())
		mapError(w, err)
		return
	}
	a.audit.logEvent(AuditRegistrationCompleted, r, user.ID)
	writeJSON(w, http.StatusCreated, SessionResponse{User: *user})
}

// Login handles POST /auth/login.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[LoginRequest](w, r)
	if !ok {
		return
	}
	result, err := a.auth.Login(r.Context(), req.Email, req.Password, clientIP(r), r.UserAgent())
	if err != nil {
		var locked *auth.LockedError
		if errors.As(err, &locked) {
			a.audit.logFailure(AuditLoginLocked, r, "account locked",
				slog.Time("locked_until", locked.Until))
		} else {
			a.audit.logFailure(AuditLoginFailure, r, err.Error())
		}
		mapError(w, err)
		return
	}

	writeSessionCookie(w, r, result.Token, result.ExpiresAt)
	a.audit.logEvent(AuditLoginSuccess, r, result.User.ID)
	writeJSON(w, http.StatusOK, SessionResponse{
		User:      result.User,
		CSRFToken: result.CSRFSecret,
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	})
}

// Logout handles POST /auth/logout. Always succeeds, even when no live
// session token was presented.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	token := resolveToken(r)
	if err := a.auth.Logout(r.Context(), token); err != nil {
		mapError(w, err)
		return
	}
	clearSessionCookie(w, r)
	a.audit.log(AuditLogout, r)
	writeJSON(w, http.StatusOK, struct{}{})
}

// CurrentUser handles GET /auth/current-user. It returns the session's
// existing CSRF secret; a read never mints a new one.
func (a *API) CurrentUser(w http.ResponseWriter, r *http.Request) {
	sc := sessionFromContext(r.Context())
	writeJSON(w, http.StatusOK, SessionResponse{
		User:      sc.info.User,
		CSRFToken: sc.info.CSRFSecret,
		ExpiresAt: sc.info.ExpiresAt,
	})
}

// RefreshSession handles POST /auth/refresh-session.
func (a *API) RefreshSession(w http.ResponseWriter, r *http.Request) {
	sc := sessionFromContext(r.Context())
	result, err := a.auth.RefreshSession(r.Context(), sc.token, clientIP(r), r.UserAgent())
	if err != nil {
		mapError(w, err)
		return
	}
	resp := RefreshResponse{Rotated: result.Rotated, ExpiresAt: result.ExpiresAt}
	if result.Rotated {
		writeSessionCookie(w, r, result.Token, result.ExpiresAt)
		resp.Token = result.Token
		resp.CSRFToken = result.CSRFSecret
		a.audit.logEvent(AuditSessionRefreshed, r, sc.info.User.ID)
	}
	writeJSON(w, http.StatusOK, resp)
}

// ForgotPassword handles POST /auth/forgot-password. Response shape and
// timing are identical whether or not the account exists.
func (a *API) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[ForgotPasswordRequest](w, r)
	if !ok {
		return
	}
	if err := a.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		a.audit.logFailure(AuditPasswordResetRequest, r, err.Error())
		mapError(w, err)
		return
	}
	a.audit.log(AuditPasswordResetRequest, r)
	writeJSON(w, http.StatusOK, MessageResponse{Message: forgotMessage})
}

// ResetPassword handles POST /auth/reset-password.
func (a *API) ResetPassword(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[ResetPasswordRequest](w, r)
	if !ok {
		return
	}
	if err := a.auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		a.audit.logFailure(AuditPasswordReset, r, err.Error())
		mapError(w, err)
		return
	}
	a.audit.log(AuditPasswordReset, r)
	writeJSON(w, http.StatusOK, struct{}{})
}
