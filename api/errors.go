package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/woodshedapp/woodshed/auth"
	"github.com/woodshedapp/woodshed/journal"
	"github.com/woodshedapp/woodshed/kvstore"
)

const maxBodySize = 64 * 1024

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func writeInternalError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	writeError(w, http.StatusInternalServerError, msg)
}

// mapError translates domain errors into HTTP responses. Identity-flow
// errors keep their generic messages; transient store failures become a
// retryable 500.
func mapError(w http.ResponseWriter, err error) {
	var weak *auth.WeakPasswordError
	var locked *auth.LockedError
	switch {
	case errors.As(err, &weak):
		writeError(w, http.StatusBadRequest, weak.Error())
	case errors.As(err, &locked):
		w.Header().Set("Retry-After", strconv.Itoa(int(locked.RetryAfter().Seconds())+1))
		writeError(w, http.StatusLocked, locked.Error())
	case errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrNotVerified),
		errors.Is(err, journal.ErrInvalidRecord):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, journal.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case kvstore.IsUnavailable(err):
		writeInternalError(w, "temporary storage failure, retry the request", err)
	default:
		writeInternalError(w, "internal error", err)
	}
}

// decodeJSON reads a bounded JSON body into T, answering 400 on malformed
// input. The bool result reports whether the handler should continue.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return v, false
	}
	if dec.More() {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return v, false
	}
	io.Copy(io.Discard, body)
	return v, true
}
