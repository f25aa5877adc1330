// Package api exposes the Woodshed REST surface: identity flows, practice
// collections, notebooks and posts.
package api

import (
	_ "embed"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/woodshedapp/woodshed/auth"
	"github.com/woodshedapp/woodshed/journal"
	"github.com/woodshedapp/woodshed/kvstore"
	"github.com/woodshedapp/woodshed/mail"
)

//go:embed openapi.yaml
var openapiSpec []byte

// API holds the dependencies needed by the REST handlers. The journal
// caches are process-scoped and constructed exactly once here.
type API struct {
	auth      *auth.Service
	times     *journal.Cache[journal.TimeRecord]
	logs      *journal.Cache[journal.LogEntry]
	notebooks *journal.Notebooks
	audit     *auditLogger
	limiter   *authRateLimiter
}

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for audit events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.audit = newAuditLogger(logger)
	}
}

// WithAuthService replaces the identity service, letting tests inject one
// with a fake clock or timing pad.
func WithAuthService(svc *auth.Service) Option {
	return func(a *API) {
		a.auth = svc
	}
}

// New creates a new API instance over the durable store. baseURL is the
// externally reachable origin used in outbound mail links.
func New(kv kvstore.Store, mailer mail.Sender, baseURL string, opts ...Option) *API {
	a := &API{
		times:     journal.NewTimeCache(kv),
		logs:      journal.NewLogCache(kv),
		notebooks: journal.NewNotebooks(kv),
		limiter:   newAuthRateLimiter(5, 10),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.audit == nil {
		a.audit = newAuditLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))
	}
	if a.auth == nil {
		a.auth = auth.NewService(kv, mailer, baseURL)
	}
	return a
}

// Router returns a chi.Router with all API routes mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/redoc",
	}, nil))

	r.Group(func(r chi.Router) {
		r.Use(a.RateLimitMiddleware)
		r.Post("/auth/register", a.Register)
		r.Post("/auth/verify-email", a.VerifyEmail)
		r.Post("/auth/complete-registration", a.CompleteRegistration)
		r.Post("/auth/login", a.Login)
		r.Post("/auth/forgot-password", a.ForgotPassword)
		r.Post("/auth/reset-password", a.ResetPassword)
	})

	// Logout stays outside the CSRF guard: it only ever deletes the
	// presented token and must be idempotent for stale clients.
	r.Post("/auth/logout", a.Logout)
	r.With(a.AuthMiddleware).Get("/auth/current-user", a.CurrentUser)
	r.With(a.AuthMiddleware).Post("/auth/refresh-session", a.RefreshSession)

	// Per-user collections: a valid session always, CSRF on mutations.
	r.Group(func(r chi.Router) {
		r.Use(a.AuthMiddleware)
		r.Use(a.CSRFMiddleware)

		r.Route("/practice", func(r chi.Router) {
			r.Get("/times", a.ListTimeRecords)
			r.Put("/times/{date}", a.PutTimeRecord)
			r.Delete("/times/{date}", a.DeleteTimeRecord)
			r.Get("/summary", a.PracticeSummary)
			r.Get("/logs", a.ListLogs)
			r.Post("/logs", a.CreateLog)
			r.Delete("/logs/{logID}", a.DeleteLog)
		})

		r.Route("/notebooks", func(r chi.Router) {
			r.Get("/", a.ListNotebooks)
			r.Post("/", a.CreateNotebook)
			r.Put("/{notebookID}", a.UpdateNotebook)
			r.Delete("/{notebookID}", a.DeleteNotebook)
			r.Get("/{notebookID}/posts", a.ListPosts)
			r.Post("/{notebookID}/posts", a.CreatePost)
			r.Get("/{notebookID}/posts/{postID}", a.GetPost)
			r.Put("/{notebookID}/posts/{postID}", a.UpdatePost)
			r.Delete("/{notebookID}/posts/{postID}", a.DeletePost)
		})
	})

	return r
}
