package api

import (
	"crypto/subtle"
	"net/http"
)

const csrfHeaderName = "X-CSRF-Token"

// CSRFMiddleware enforces the session-embedded CSRF secret on mutating
// requests. The client receives the secret once (at login or via
// current-user) and must echo it back in the X-CSRF-Token header. Safe
// methods pass through. The guard runs after AuthMiddleware, so a missing
// or expired session has already failed with 401 before CSRF is evaluated.
func (a *API) CSRFMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		sc := sessionFromContext(r.Context())
		if sc == nil || sc.info.CSRFSecret == "" {
			writeError(w, http.StatusForbidden, "missing CSRF token")
			return
		}
		header := r.Header.Get(csrfHeaderName)
		if header == "" {
			writeError(w, http.StatusForbidden, "missing CSRF token")
			return
		}
		if subtle.ConstantTimeCompare([]byte(sc.info.CSRFSecret), []byte(header)) != 1 {
			writeError(w, http.StatusForbidden, "invalid CSRF token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
