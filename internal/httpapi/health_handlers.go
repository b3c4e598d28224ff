package httpapi

import (
	"database/sql"
	"net/http"
)

type HealthHandler struct {
	DB *sql.DB
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if h.DB != nil {
		if err := h.DB.PingContext(r.Context()); err != nil {
			dbOK = false
		}
	}
	writeJSON(w, map[string]any{
		"ok": dbOK,
		"db": dbOK,
	})
}
