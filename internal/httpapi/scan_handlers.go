package httpapi

import (
	"context"
	"net/http"
	"time"
)

type ScanHandler struct {
	Runner Runner
	Scans  *ScanTracker
}

func (h ScanHandler) Status(w http.ResponseWriter, r *http.Request) {
	st := h.Scans.Get()
	st.Last = h.Runner.LastResult()
	writeJSON(w, st)
}

// Run kicks off a scan in the background. A run already in flight is
// reported rather than queued; the pipeline enforces the same exclusion
// for scheduled runs.
func (h ScanHandler) Run(w http.ResponseWriter, r *http.Request) {
	if !h.Scans.Begin(time.Now().UTC().Format(time.RFC3339)) {
		writeJSON(w, map[string]any{"ok": false, "msg": "already running"})
		return
	}

	go func() {
		res := h.Runner.RunOnce(context.Background())
		h.Scans.Finish(res, time.Now().UTC().Format(time.RFC3339))
	}()

	writeJSON(w, map[string]any{"ok": true})
}
