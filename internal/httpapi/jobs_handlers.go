package httpapi

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"jobscan-engine/internal/store"
)

type JobsHandler struct {
	DB *sql.DB
}

// List serves recently seen jobs. Query params: hours (lookback window,
// default 168) and limit (default 500).
func (h JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	hours := 168
	if v := q.Get("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			WriteError(w, r, http.StatusBadRequest, "bad_request", "hours must be a positive integer")
			return
		}
		hours = n
	}
	limit := 500
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			WriteError(w, r, http.StatusBadRequest, "bad_request", "limit must be a positive integer")
			return
		}
		limit = n
	}

	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	jobs, err := store.Jobs{DB: h.DB}.Recent(r.Context(), since, limit)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeJSON(w, map[string]any{"jobs": jobs, "count": len(jobs)})
}

// Stale serves jobs not seen since the given cutoff, likely delisted.
// Query param: days (default 30).
func (h JobsHandler) Stale(w http.ResponseWriter, r *http.Request) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			WriteError(w, r, http.StatusBadRequest, "bad_request", "days must be a positive integer")
			return
		}
		days = n
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	jobs, err := store.Jobs{DB: h.DB}.Stale(r.Context(), cutoff)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeJSON(w, map[string]any{"jobs": jobs, "count": len(jobs), "cutoff": cutoff})
}
