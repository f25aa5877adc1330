package api

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/woodshedapp/woodshed/auth"
)

type contextKey int

const sessionKey contextKey = iota

const sessionCookieName = "woodshed_session"

// sessionContext is what AuthMiddleware attaches to the request.
type sessionContext struct {
	info  *auth.SessionInfo
	token string
}

// resolveToken extracts the session token, preferring the same-site cookie
// and falling back to a bearer header for non-browser clients. Every
// operation that resolves the current session goes through this.
func resolveToken(r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	return ""
}

// AuthMiddleware validates the session token and attaches the resolved
// session to the request context. Session validity is settled here, before
// the CSRF guard ever runs.
func (a *API) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := resolveToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		info, err := a.auth.CurrentUser(r.Context(), token)
		if err != nil {
			mapError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey, &sessionContext{info: info, token: token})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFromContext(ctx context.Context) *sessionContext {
	sc, _ := ctx.Value(sessionKey).(*sessionContext)
	return sc
}

func writeSessionCookie(w http.ResponseWriter, r *http.Request, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   requestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
		Expires:  expiresAt,
	})
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   requestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

func requestIsSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return true
	}
	return strings.Contains(strings.ToLower(r.Header.Get("Forwarded")), "proto=https")
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	// Normalize bracketed IPv6 and drop any zone (fe80::1%eth0) so one
	// client always maps to one rate-limiter key.
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	if i := strings.IndexByte(host, '%'); i >= 0 {
		host = host[:i]
	}
	return host
}
