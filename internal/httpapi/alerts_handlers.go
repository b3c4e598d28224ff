package httpapi

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"jobscan-engine/internal/store"
)

type AlertsHandler struct {
	DB *sql.DB
}

// ForJob serves the alert history for one job. Query param: job_key.
func (h AlertsHandler) ForJob(w http.ResponseWriter, r *http.Request) {
	jobKey := r.URL.Query().Get("job_key")
	if jobKey == "" {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "job_key is required")
		return
	}

	alerts, err := store.Alerts{DB: h.DB}.ForJob(r.Context(), jobKey)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeJSON(w, map[string]any{"alerts": alerts, "count": len(alerts)})
}

type cleanupAlertsReq struct {
	OlderThanDays int `json:"older_than_days"`
}

// Cleanup trims ledger entries older than the requested age.
func (h AlertsHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	var req cleanupAlertsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "invalid JSON")
		return
	}
	if req.OlderThanDays <= 0 {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "older_than_days must be positive")
		return
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -req.OlderThanDays)
	deleted, err := store.Alerts{DB: h.DB}.DeleteOlderThan(r.Context(), cutoff)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeJSON(w, map[string]any{"deleted": deleted, "cutoff": cutoff})
}
