// Package httpapi is the local HTTP surface of the engine: scan status
// and trigger, job queries, source health, config, secrets and SSE.
package httpapi

import "net/http"

// NewMux wires every route. The caller wraps it with Chain and the
// middleware it wants.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	hh := HealthHandler{DB: d.DB}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	// Scans
	sch := ScanHandler{Runner: d.Runner, Scans: d.Scans}
	mux.HandleFunc("/scan/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: sch.Status,
	}))
	mux.HandleFunc("/scan/run", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sch.Run,
	}))

	// Jobs
	jh := JobsHandler{DB: d.DB}
	mux.HandleFunc("/jobs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: jh.List,
	}))
	mux.HandleFunc("/jobs/stale", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: jh.Stale,
	}))

	// Source health
	srh := SourcesHandler{DB: d.DB}
	mux.HandleFunc("/sources", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: srh.List,
	}))

	// Alert ledger
	ah := AlertsHandler{DB: d.DB}
	mux.HandleFunc("/alerts", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ah.ForJob,
	}))
	mux.HandleFunc("/alerts/cleanup", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: ah.Cleanup,
	}))

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))
	mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Validate,
	}))

	// Secrets (use CfgVal, not a snapshot cfg)
	seh := SecretsHandler{CfgVal: d.CfgVal}
	mux.HandleFunc("/api/secrets/smtp", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: seh.SetSMTPPassword,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	// DB maintenance
	dh := DBHandler{DB: d.DB}
	mux.HandleFunc("/db/checkpoint", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: dh.Checkpoint,
	}))

	return mux
}
