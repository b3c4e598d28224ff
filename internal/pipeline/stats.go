package pipeline

import "time"

// SourceStats is the per-source scorecard for one run.
type SourceStats struct {
	SourceID     string        `json:"source_id"`
	Fetched      int           `json:"fetched"`
	Normalized   int           `json:"normalized"`
	Upserted     int           `json:"upserted"`
	Matched      int           `json:"matched"`
	Notified     int           `json:"notified"`
	AlertsSent   int           `json:"alerts_sent"`
	Errors       int           `json:"errors"`
	Duration     time.Duration `json:"duration_ns"`
	HadErrors    bool          `json:"had_errors"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// RunResult aggregates a whole run across sources.
type RunResult struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration_ns"`
	Skipped    bool          `json:"skipped"`

	SourceStats []SourceStats `json:"source_stats,omitempty"`

	TotalFetched    int  `json:"total_fetched"`
	TotalNormalized int  `json:"total_normalized"`
	TotalUpserted   int  `json:"total_upserted"`
	TotalMatched    int  `json:"total_matched"`
	TotalNotified   int  `json:"total_notified"`
	AlertsSent      int  `json:"alerts_sent"`
	TotalErrors     int  `json:"total_errors"`
	HadErrors       bool `json:"had_errors"`
}

// finish stamps the end time and rolls per-source stats up into totals.
func (r *RunResult) finish(at time.Time) {
	r.FinishedAt = at
	r.Duration = r.FinishedAt.Sub(r.StartedAt)

	for _, s := range r.SourceStats {
		r.TotalFetched += s.Fetched
		r.TotalNormalized += s.Normalized
		r.TotalUpserted += s.Upserted
		r.TotalMatched += s.Matched
		r.TotalNotified += s.Notified
		r.AlertsSent += s.AlertsSent
		r.TotalErrors += s.Errors
		if s.HadErrors || s.Errors > 0 {
			r.HadErrors = true
		}
	}
}
