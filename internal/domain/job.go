package domain

import "time"

// RawJob is what a source adapter hands back before normalization.
// It carries no identity beyond the source-scoped external id.
type RawJob struct {
	ExternalID  string
	Title       string
	Company     string
	Location    string // empty when the board publishes none
	Description string
	URL         string
	PostedAt    *time.Time // UTC
	UpdatedAt   *time.Time // UTC
}

// Job is the canonical, persisted form of a posting. JobKey is derived from
// (source_type, source_identifier, external_id) and never changes;
// ContentHash is recomputed on every observation.
type Job struct {
	JobKey           string
	SourceType       string
	SourceIdentifier string
	ExternalID       string
	Title            string
	Company          string
	Location         string
	Description      string
	URL              string
	PostedAt         *time.Time
	UpdatedAt        *time.Time
	FirstSeenAt      time.Time // set once, never decreases
	LastSeenAt       time.Time // advances every observation
	ContentHash      string
}

// AlertRecord marks that a notification went out for one content version of
// a job. Append-only; (JobKey, VersionHash) is unique.
type AlertRecord struct {
	JobKey      string
	VersionHash string
	SentAt      time.Time
}

// SourceStatus tracks per-source health across runs.
type SourceStatus struct {
	Identifier    string
	Name          string
	SourceType    string
	LastSuccessAt *time.Time
	LastErrorAt   *time.Time
	ErrorMessage  string
}
