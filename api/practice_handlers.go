package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/woodshedapp/woodshed/internal/util"
	"github.com/woodshedapp/woodshed/journal"
)

// ListTimeRecords handles GET /practice/times. Records come back ascending
// by date.
func (a *API) ListTimeRecords(w http.ResponseWriter, r *http.Request) {
	sc := sessionFromContext(r.Context())
	records, summary, err := a.times.GetAll(r.Context(), sc.info.UserID)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TimeRecordsResponse{Records: records, Summary: summary})
}

// PutTimeRecord handles PUT /practice/times/{date}. The derived
// total_minutes is always recomputed server-side.
func (a *API) PutTimeRecord(w http.ResponseWriter, r *http.Request) {
	sc := sessionFromContext(r.Context())
	req, ok := decodeJSON[PutTimeRecordRequest](w, r)
	if !ok {
		return
	}
	record, err := journal.NewTimeRecord(chi.URLParam(r, "date"), req.Hours, req.Minutes, req.Note)
	if err != nil {
		mapError(w, err)
		return
	}
	if err := a.times.Upsert(r.Context(), sc.info.UserID, record.Date, record); err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// DeleteTimeRecord handles DELETE /practice/times/{date}.
func (a *API) DeleteTimeRecord(w http.ResponseWriter, r *http.Request) {
	sc := sessionFromContext(r.Context())
	date := chi.URLParam(r, "date")
	if !util.ValidDateKey(date) {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	if err := a.times.Delete(r.Context(), sc.info.UserID, date); err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

// PracticeSummary handles GET /practice/summary.
func (a *API) PracticeSummary(w http.ResponseWriter, r *http.Request) {
	sc := sessionFromContext(r.Context())
	summary, err := a.times.Summary(r.Context(), sc.info.UserID)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ListLogs handles GET /practice/logs. Logs come back newest first.
func (a *API) ListLogs(w http.ResponseWriter, r *http.Request) {
	sc := sessionFromContext(r.Context())
	logs, summary, err := a.logs.GetAll(r.Context(), sc.info.UserID)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LogsResponse{Logs: logs, Summary: summary})
}

// CreateLog handles POST /practice/logs.
func (a *API) CreateLog(w http.ResponseWriter, r *http.Request) {
	sc := sessionFromContext(r.Context())
	req, ok := decodeJSON[CreateLogRequest](w, r)
	if !ok {
		return
	}
	if !util.ValidDateKey(req.Date) {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	entry := journal.LogEntry{
		ID:        uuid.NewString(),
		Date:      req.Date,
		Title:     req.Title,
		Body:      req.Body,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.logs.Upsert(r.Context(), sc.info.UserID, entry.ID, entry); err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// DeleteLog handles DELETE /practice/logs/{logID}.
func (a *API) DeleteLog(w http.ResponseWriter, r *http.Request) {
	sc := sessionFromContext(r.Context())
	if err := a.logs.Delete(r.Context(), sc.info.UserID, chi.URLParam(r, "logID")); err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}
