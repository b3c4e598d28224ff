package httpapi

import (
	"sync"

	"jobscan-engine/internal/pipeline"
)

// ScanStatus is the API view of scan activity.
type ScanStatus struct {
	Running   bool                `json:"running"`
	LastRunAt string              `json:"last_run_at"`
	LastOkAt  string              `json:"last_ok_at"`
	LastError string              `json:"last_error"`
	Last      *pipeline.RunResult `json:"last_result,omitempty"`
}

// ScanTracker serializes status updates shared by the scheduler and the
// manual run endpoint. Plain load-modify-store on a shared value would
// let concurrent runs overwrite each other's updates.
type ScanTracker struct {
	mu sync.Mutex
	st ScanStatus
}

func (t *ScanTracker) Get() ScanStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.st
}

// Begin marks a run as started. It reports false, without touching the
// status, when a run is already in flight.
func (t *ScanTracker) Begin(now string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.st.Running {
		return false
	}
	t.st.Running = true
	t.st.LastRunAt = now
	return true
}

// Finish records a run's outcome. A skipped result only notes the skip;
// the run that actually holds the lock still owns the Running flag.
func (t *ScanTracker) Finish(res pipeline.RunResult, now string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if res.Skipped {
		t.st.LastError = "run skipped: another run in progress"
		return
	}

	t.st.Running = false
	t.st.LastRunAt = now
	t.st.LastOkAt = now
	if res.HadErrors {
		t.st.LastError = "run completed with errors"
	} else {
		t.st.LastError = ""
	}
}
