package api

import (
	"time"

	"github.com/woodshedapp/woodshed/auth"
	"github.com/woodshedapp/woodshed/journal"
)

// RegisterRequest is the JSON body for POST /auth/register.
type RegisterRequest struct {
	Email string `json:"email"`
}

// MessageResponse is the deliberately uniform body returned by the
// enumeration-sensitive endpoints (register, forgot-password).
type MessageResponse struct {
	Message string `json:"message"`
}

// VerifyEmailRequest is the JSON body for POST /auth/verify-email.
type VerifyEmailRequest struct {
	Token string `json:"token"`
}

// VerifyEmailResponse is returned from POST /auth/verify-email.
type VerifyEmailResponse struct {
	Email string `json:"email"`
}

// CompleteRegistrationRequest is the JSON body for POST /auth/complete-registration.
type CompleteRegistrationRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// LoginRequest is the JSON body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned from login, current-user and
// complete-registration. Token is populated only at login, for non-browser
// clients that cannot use the session cookie.
type SessionResponse struct {
	User      auth.PublicUser `json:"user"`
	CSRFToken string          `json:"csrf_token,omitempty"`
	Token     string          `json:"token,omitempty"`
	ExpiresAt time.Time       `json:"expires_at,omitzero"`
}

// RefreshResponse is returned from POST /auth/refresh-session.
type RefreshResponse struct {
	Rotated   bool      `json:"rotated"`
	Token     string    `json:"token,omitempty"`
	CSRFToken string    `json:"csrf_token,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ForgotPasswordRequest is the JSON body for POST /auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the JSON body for POST /auth/reset-password.
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// PutTimeRecordRequest is the JSON body for PUT /practice/times/{date}.
type PutTimeRecordRequest struct {
	Hours   int    `json:"hours"`
	Minutes int    `json:"minutes"`
	Note    string `json:"note,omitempty"`
}

// TimeRecordsResponse is returned from GET /practice/times.
type TimeRecordsResponse struct {
	Records []journal.TimeRecord `json:"records"`
	Summary journal.Summary      `json:"summary"`
}

// CreateLogRequest is the JSON body for POST /practice/logs.
type CreateLogRequest struct {
	Date  string `json:"date"`
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
}

// LogsResponse is returned from GET /practice/logs.
type LogsResponse struct {
	Logs    []journal.LogEntry `json:"logs"`
	Summary journal.Summary    `json:"summary"`
}

// NotebookRequest is the JSON body for creating or updating a notebook.
type NotebookRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// NotebooksResponse is returned from GET /notebooks.
type NotebooksResponse struct {
	Notebooks []journal.Notebook `json:"notebooks"`
}

// PostRequest is the JSON body for creating or updating a post.
type PostRequest struct {
	Title string   `json:"title"`
	Body  string   `json:"body,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

// PostsResponse is returned from GET /notebooks/{notebookID}/posts.
type PostsResponse struct {
	Posts []journal.Post `json:"posts"`
}

// ErrorResponse is returned for all error cases.
type ErrorResponse struct {
	Error string `json:"error"`
}
