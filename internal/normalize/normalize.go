// Package normalize turns raw adapter output into canonical, persistable
// jobs and classifies each observation as new, unchanged or updated.
package normalize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"jobscan-engine/internal/config"
	"jobscan-engine/internal/domain"
	"jobscan-engine/internal/identity"
	"jobscan-engine/internal/match"
)

// JobLookup is the read side of the job store the normalizer needs for
// change detection. A nil job with nil error means never seen.
type JobLookup interface {
	GetByKey(ctx context.Context, jobKey string) (*domain.Job, error)
}

// Result is the outcome of normalizing one raw job.
type Result struct {
	Job      domain.Job
	Existing *domain.Job

	IsNew          bool
	ContentChanged bool

	Text match.Text
}

// ShouldUpsert reports whether the full row must be written. Unchanged jobs
// only get a last_seen touch.
func (r Result) ShouldUpsert() bool { return r.IsNew || r.ContentChanged }

// ShouldRematch reports whether the posting needs re-evaluation against the
// search criteria.
func (r Result) ShouldRematch() bool { return r.ContentChanged }

// Normalizer classifies observations against the stored record. ScanTime is
// shared across a whole run so every job in it carries the same timestamps.
type Normalizer struct {
	Jobs     JobLookup
	ScanTime time.Time
	Log      *slog.Logger
}

func New(jobs JobLookup, scanTime time.Time, log *slog.Logger) *Normalizer {
	if log == nil {
		log = slog.Default()
	}
	return &Normalizer{
		Jobs:     jobs,
		ScanTime: scanTime.UTC(),
		Log:      log.With("component", "normalize"),
	}
}

// Normalize derives the job key, looks up the prior record, sanitizes text
// fields, computes the content hash and classifies the observation.
func (n *Normalizer) Normalize(ctx context.Context, raw domain.RawJob, src config.Source) (Result, error) {
	if strings.TrimSpace(raw.ExternalID) == "" {
		return Result{}, fmt.Errorf("normalize: raw job from %s has empty external id", src.Identifier)
	}

	jobKey := identity.JobKey(src.Type, src.Identifier, raw.ExternalID)

	existing, err := n.Jobs.GetByKey(ctx, jobKey)
	if err != nil {
		return Result{}, fmt.Errorf("normalize: lookup %s: %w", jobKey, err)
	}

	title := sanitize(raw.Title)
	description := sanitize(raw.Description)
	location := sanitize(raw.Location) // empty stays empty, stored as absent

	if description == "" {
		n.Log.Warn("missing or empty description", "job_key", jobKey, "source", src.Identifier)
	}

	firstSeen := n.ScanTime
	if existing != nil {
		firstSeen = existing.FirstSeenAt
	}

	contentHash := identity.ContentHash(title, description, location)

	isNew := existing == nil
	contentChanged := isNew || contentHash != existing.ContentHash

	job := domain.Job{
		JobKey:           jobKey,
		SourceType:       strings.ToLower(strings.TrimSpace(src.Type)),
		SourceIdentifier: strings.TrimSpace(src.Identifier),
		ExternalID:       strings.TrimSpace(raw.ExternalID),
		Title:            title,
		Company:          sanitize(raw.Company),
		Location:         location,
		Description:      description,
		URL:              strings.TrimSpace(raw.URL),
		PostedAt:         raw.PostedAt,
		UpdatedAt:        raw.UpdatedAt,
		FirstSeenAt:      firstSeen,
		LastSeenAt:       n.ScanTime,
		ContentHash:      contentHash,
	}

	n.Log.Debug("normalized job",
		"job_key", jobKey,
		"source", src.Identifier,
		"is_new", isNew,
		"content_changed", contentChanged,
	)

	return Result{
		Job:            job,
		Existing:       existing,
		IsNew:          isNew,
		ContentChanged: contentChanged,
		Text:           match.NewText(title, description, location),
	}, nil
}

// Batch normalizes a slice of raw jobs, continuing past individual
// failures. Only successful results are returned.
func (n *Normalizer) Batch(ctx context.Context, raws []domain.RawJob, src config.Source) []Result {
	out := make([]Result, 0, len(raws))
	for _, raw := range raws {
		res, err := n.Normalize(ctx, raw, src)
		if err != nil {
			n.Log.Error("normalize failed",
				"source", src.Identifier,
				"external_id", raw.ExternalID,
				"err", err,
			)
			continue
		}
		out = append(out, res)
	}
	return out
}

// sanitize trims and collapses internal whitespace, including NBSP.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}
