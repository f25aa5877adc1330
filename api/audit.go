package api

import (
	"log/slog"
	"net/http"
	"time"
)

// AuditEvent identifies the type of security-relevant action being logged.
type AuditEvent string

const (
	AuditRegister              AuditEvent = "register"
	AuditEmailVerified         AuditEvent = "email_verified"
	AuditRegistrationCompleted AuditEvent = "registration_completed"
	AuditLoginSuccess          AuditEvent = "login_success"
	AuditLoginFailure          AuditEvent = "login_failure"
	AuditLoginLocked           AuditEvent = "login_locked"
	AuditLogout                AuditEvent = "logout"
	AuditSessionRefreshed      AuditEvent = "session_refreshed"
	AuditPasswordResetRequest  AuditEvent = "password_reset_requested"
	AuditPasswordReset         AuditEvent = "password_reset"
	AuditRateLimited           AuditEvent = "rate_limited"
)

// auditLogger wraps slog.Logger for structured security audit logging.
// Identity-flow responses stay generic; the detailed reason lands here.
type auditLogger struct {
	logger *slog.Logger
}

func newAuditLogger(logger *slog.Logger) *auditLogger {
	return &auditLogger{
		logger: logger.With("component", "audit"),
	}
}

func (al *auditLogger) log(event AuditEvent, r *http.Request, attrs ...slog.Attr) {
	baseAttrs := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	baseAttrs = append(baseAttrs, attrs...)
	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", baseAttrs...)
}

// logEvent is a convenience for events tied to a known user.
func (al *auditLogger) logEvent(event AuditEvent, r *http.Request, userID string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("user_id", userID),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}

// logFailure logs a failed identity operation with its server-side reason.
func (al *auditLogger) logFailure(event AuditEvent, r *http.Request, reason string, extra ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("reason", reason),
	}
	attrs = append(attrs, extra...)
	al.log(event, r, attrs...)
}
