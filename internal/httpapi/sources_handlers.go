package httpapi

import (
	"database/sql"
	"net/http"

	"jobscan-engine/internal/store"
)

type SourcesHandler struct {
	DB *sql.DB
}

// List serves per-source health: last success, last error and message.
func (h SourcesHandler) List(w http.ResponseWriter, r *http.Request) {
	statuses, err := store.Sources{DB: h.DB}.All(r.Context())
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeJSON(w, map[string]any{"sources": statuses})
}
