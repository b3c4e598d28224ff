// Package pipeline orchestrates a full scan: for every enabled source,
// fetch, normalize, persist, match, notify. One source failing never
// takes the others down, and overlapping runs are refused rather than
// queued.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"jobscan-engine/internal/config"
	"jobscan-engine/internal/domain"
	"jobscan-engine/internal/events"
	"jobscan-engine/internal/fetch"
	"jobscan-engine/internal/match"
	"jobscan-engine/internal/normalize"
	"jobscan-engine/internal/notify"
)

// Fetchers resolves the adapter for a configured source.
type Fetchers interface {
	ForSource(src config.Source) (fetch.Fetcher, error)
}

// JobStore is the persistence the pipeline needs for jobs.
type JobStore interface {
	GetByKey(ctx context.Context, jobKey string) (*domain.Job, error)
	Upsert(ctx context.Context, j domain.Job) error
	TouchLastSeen(ctx context.Context, jobKey string, t time.Time) error
}

// SourceHealth records per-source success and failure timestamps.
type SourceHealth interface {
	RecordSuccess(ctx context.Context, identifier, name, sourceType string, t time.Time) error
	RecordError(ctx context.Context, identifier, name, sourceType string, t time.Time, message string) error
}

// Evaluator scores one job's text against the search criteria.
type Evaluator interface {
	Evaluate(jobKey string, text match.Text) match.Verdict
}

// Alerter sends notifications for matched candidates.
type Alerter interface {
	SendBatch(ctx context.Context, cands []notify.Candidate) ([]notify.Result, notify.BatchStats)
}

type Pipeline struct {
	Config   func() config.Config
	Fetchers Fetchers
	Jobs     JobStore
	Health   SourceHealth
	Matcher  Evaluator
	Notifier Alerter
	Hub      *events.Hub
	Log      *slog.Logger
	Now      func() time.Time

	mu sync.Mutex // held for the duration of a run

	lastMu sync.Mutex
	last   *RunResult
}

func New(cfg func() config.Config, fetchers Fetchers, jobs JobStore, health SourceHealth,
	matcher Evaluator, notifier Alerter, hub *events.Hub, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		Config:   cfg,
		Fetchers: fetchers,
		Jobs:     jobs,
		Health:   health,
		Matcher:  matcher,
		Notifier: notifier,
		Hub:      hub,
		Log:      log.With("component", "pipeline"),
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// LastResult returns the most recent completed (non-skipped) run, or nil.
func (p *Pipeline) LastResult() *RunResult {
	p.lastMu.Lock()
	defer p.lastMu.Unlock()
	if p.last == nil {
		return nil
	}
	cp := *p.last
	return &cp
}

// RunOnce executes one full scan. If a run is already in flight the call
// returns immediately with Skipped set and zero side effects.
func (p *Pipeline) RunOnce(ctx context.Context) RunResult {
	runID := uuid.NewString()
	started := p.Now()
	log := p.Log.With("run_id", runID)

	if !p.mu.TryLock() {
		log.Warn("run skipped, previous run still in progress")
		return RunResult{
			RunID:      runID,
			StartedAt:  started,
			FinishedAt: p.Now(),
			Skipped:    true,
		}
	}
	defer p.mu.Unlock()

	cfg := p.Config()
	enabled := cfg.EnabledSources()

	log.Info("run started",
		"enabled_sources", len(enabled),
		"total_sources", len(cfg.Sources),
	)
	p.publish(runID, events.TypeRunStarted, map[string]any{
		"enabled_sources": len(enabled),
	})

	result := RunResult{RunID: runID, StartedAt: started}
	for _, src := range enabled {
		result.SourceStats = append(result.SourceStats, p.processSource(ctx, runID, src, started))
	}
	result.finish(p.Now())

	log.Info("run completed",
		"duration_ms", result.Duration.Milliseconds(),
		"fetched", result.TotalFetched,
		"normalized", result.TotalNormalized,
		"upserted", result.TotalUpserted,
		"matched", result.TotalMatched,
		"notified", result.TotalNotified,
		"alerts_sent", result.AlertsSent,
		"errors", result.TotalErrors,
		"had_errors", result.HadErrors,
	)
	p.publish(runID, events.TypeRunCompleted, result)

	p.lastMu.Lock()
	p.last = &result
	p.lastMu.Unlock()

	return result
}

func (p *Pipeline) processSource(ctx context.Context, runID string, src config.Source, scanTime time.Time) SourceStats {
	start := p.Now()
	stats := SourceStats{SourceID: src.Identifier}
	log := p.Log.With("run_id", runID, "source", src.Identifier, "ats", src.Type)

	defer func() {
		stats.Duration = p.Now().Sub(start)
		// per-record failures count too, not just fetch-level ones
		if stats.Errors > 0 {
			stats.HadErrors = true
		}
		log.Debug("source finished",
			"duration_ms", stats.Duration.Milliseconds(),
			"errors", stats.Errors,
		)
	}()

	fetcher, err := p.Fetchers.ForSource(src)
	if err != nil {
		p.failSource(ctx, &stats, log, src, scanTime, runID, err)
		return stats
	}

	raws, err := fetcher.FetchJobs(ctx, src)
	if err != nil {
		p.failSource(ctx, &stats, log, src, scanTime, runID, err)
		return stats
	}
	stats.Fetched = len(raws)

	if err := p.Health.RecordSuccess(ctx, src.Identifier, src.Name, src.Type, scanTime); err != nil {
		log.Error("recording source success failed", "err", err)
	}

	normalizer := normalize.New(p.Jobs, scanTime, p.Log)

	var candidates []notify.Candidate
	var newCount, updatedCount, unchangedCount int

	for _, raw := range raws {
		res, err := normalizer.Normalize(ctx, raw, src)
		if err != nil {
			stats.Errors++
			log.Error("job processing failed", "external_id", raw.ExternalID, "err", err)
			continue
		}
		stats.Normalized++

		if res.ShouldUpsert() {
			if err := p.Jobs.Upsert(ctx, res.Job); err != nil {
				stats.Errors++
				log.Error("job upsert failed", "job_key", res.Job.JobKey, "err", err)
				continue
			}
			stats.Upserted++
			if res.IsNew {
				newCount++
			} else {
				updatedCount++
			}
		} else {
			if err := p.Jobs.TouchLastSeen(ctx, res.Job.JobKey, scanTime); err != nil {
				stats.Errors++
				log.Error("last_seen update failed", "job_key", res.Job.JobKey, "err", err)
				continue
			}
			unchangedCount++
		}

		if !res.ShouldRematch() {
			continue
		}

		verdict := p.Matcher.Evaluate(res.Job.JobKey, res.Text)
		if !verdict.IsMatch {
			continue
		}
		stats.Matched++
		p.publish(runID, events.TypeJobMatched, map[string]any{
			"job_key": res.Job.JobKey,
			"title":   res.Job.Title,
			"company": res.Job.Company,
			"is_new":  res.IsNew,
		})

		cand := notify.Candidate{
			Job:            res.Job,
			Verdict:        verdict,
			IsNew:          res.IsNew,
			ContentChanged: res.ContentChanged,
		}
		if cand.ShouldNotify() {
			candidates = append(candidates, cand)
		}
	}

	log.Info("source processed",
		"fetched", stats.Fetched,
		"new", newCount,
		"updated", updatedCount,
		"unchanged", unchangedCount,
		"matched", stats.Matched,
	)

	if len(candidates) > 0 {
		results, bstats := p.Notifier.SendBatch(ctx, candidates)
		stats.Notified = bstats.Sent
		stats.AlertsSent = bstats.Sent
		stats.Errors += bstats.Failed
		if bstats.Failed > 0 {
			stats.HadErrors = true
		}
		for _, r := range results {
			if r.Status == notify.StatusSent {
				p.publish(runID, events.TypeAlertSent, map[string]any{
					"job_key":      r.JobKey,
					"version_hash": r.VersionHash,
					"attempts":     r.Attempts,
				})
			}
		}
		log.Info("notifications processed",
			"sent", bstats.Sent,
			"duplicates", bstats.Duplicates,
			"failed", bstats.Failed,
		)
	}

	return stats
}

// failSource handles a fetch-level failure: classify, log, record health
// and stamp the stats. The run moves on to the next source.
func (p *Pipeline) failSource(ctx context.Context, stats *SourceStats, log *slog.Logger,
	src config.Source, scanTime time.Time, runID string, err error) {

	stats.HadErrors = true
	stats.Errors++
	stats.ErrorMessage = err.Error()

	kind := fetch.KindOf(err)
	switch kind {
	case fetch.KindTransient:
		log.Warn("source fetch failed, will retry next run", "kind", kind, "err", err)
	default:
		log.Error("source fetch failed", "kind", kind, "err", err)
	}

	if herr := p.Health.RecordError(ctx, src.Identifier, src.Name, src.Type, scanTime, err.Error()); herr != nil {
		log.Error("recording source error failed", "err", herr)
	}

	p.publish(runID, events.TypeSourceError, map[string]any{
		"source": src.Identifier,
		"kind":   string(kind),
		"error":  err.Error(),
	})
}

func (p *Pipeline) publish(runID, typ string, data any) {
	if p.Hub == nil {
		return
	}
	p.Hub.Publish(events.MakeEvent(runID, typ, 1, data))
}
