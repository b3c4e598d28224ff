package httpapi

import (
	"context"
	"database/sql"
	"log/slog"
	"sync/atomic"

	"jobscan-engine/internal/config"
	"jobscan-engine/internal/events"
	"jobscan-engine/internal/pipeline"
)

// Runner is the pipeline surface the API needs: trigger a scan, read
// the last outcome.
type Runner interface {
	RunOnce(ctx context.Context) pipeline.RunResult
	LastResult() *pipeline.RunResult
}

type Deps struct {
	DB *sql.DB

	Hub    *events.Hub
	Runner Runner

	CfgVal *atomic.Value // stores config.Config
	Scans  *ScanTracker

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	Log *slog.Logger
}
