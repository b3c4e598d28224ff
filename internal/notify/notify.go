// Package notify turns matched jobs into email alerts. Deduplication
// against the alert ledger, retry with backoff, and the terminal status
// of each attempt all live here; actual SMTP I/O sits behind the
// Deliverer interface.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"jobscan-engine/internal/domain"
	"jobscan-engine/internal/match"
)

// Status is the terminal outcome of one notification decision.
type Status string

const (
	StatusSent      Status = "sent"
	StatusSkipped   Status = "skipped"   // not a match, or content unchanged
	StatusDuplicate Status = "duplicate" // this content version was already alerted
	StatusFailed    Status = "failed"    // delivery or rendering failed
)

// Candidate is a job that survived matching and may need an alert.
type Candidate struct {
	Job            domain.Job
	Verdict        match.Verdict
	IsNew          bool
	ContentChanged bool
}

// ShouldNotify gates on both the match verdict and content change, so an
// unchanged posting never re-alerts even if criteria are loosened.
func (c Candidate) ShouldNotify() bool {
	return c.Verdict.IsMatch && c.ContentChanged
}

// Result reports what happened to one candidate.
type Result struct {
	JobKey      string
	VersionHash string
	Attempts    int
	Status      Status
	Err         error
}

// Renderer produces the email content for a payload. Render errors are
// fatal; a broken template will not fix itself between retries.
type Renderer interface {
	Render(p Payload) (Email, error)
}

// Deliverer sends one rendered email. Errors are treated as retryable.
type Deliverer interface {
	Deliver(ctx context.Context, email Email) error
}

// Ledger is the persistence side of exactly-once alerting.
type Ledger interface {
	HasBeenSent(ctx context.Context, jobKey, versionHash string) (bool, error)
	RecordAlert(ctx context.Context, jobKey, versionHash string, sentAt time.Time) (domain.AlertRecord, error)
}

// RetryPolicy controls delivery retries. MaxRetries is retries beyond
// the first attempt, so attempts total MaxRetries+1.
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	Multiplier   float64
}

const maxRetryDelay = 60 * time.Second

func (p RetryPolicy) maxAttempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// delayBefore is the backoff applied before the given attempt (2-based;
// the first attempt never waits). Exponential, capped at a minute.
func (p RetryPolicy) delayBefore(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.InitialDelay)
	for i := 0; i < attempt-2; i++ {
		d *= mult
	}
	if d > float64(maxRetryDelay) {
		return maxRetryDelay
	}
	return time.Duration(d)
}

type Notifier struct {
	Renderer  Renderer
	Deliverer Deliverer
	Ledger    Ledger
	Retry     RetryPolicy

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
	Log   *slog.Logger
}

func New(r Renderer, d Deliverer, l Ledger, retry RetryPolicy, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{
		Renderer:  r,
		Deliverer: d,
		Ledger:    l,
		Retry:     retry,
		Now:       func() time.Time { return time.Now().UTC() },
		Sleep:     sleepCtx,
		Log:       log.With("component", "notify"),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Send runs the full decision for one candidate: gate, dedup, render,
// deliver with retries, and record the ledger entry only after a
// successful delivery.
func (n *Notifier) Send(ctx context.Context, cand Candidate) Result {
	jobKey := cand.Job.JobKey
	versionHash := cand.Job.ContentHash
	res := Result{JobKey: jobKey, VersionHash: versionHash}

	if !cand.ShouldNotify() {
		n.Log.Debug("skipping notification",
			"job_key", jobKey,
			"is_match", cand.Verdict.IsMatch,
			"content_changed", cand.ContentChanged,
		)
		res.Status = StatusSkipped
		return res
	}

	sent, err := n.Ledger.HasBeenSent(ctx, jobKey, versionHash)
	if err != nil {
		res.Status = StatusFailed
		res.Err = fmt.Errorf("dedup check: %w", err)
		n.Log.Error("dedup check failed", "job_key", jobKey, "err", err)
		return res
	}
	if sent {
		n.Log.Info("duplicate notification suppressed", "job_key", jobKey, "version_hash", versionHash)
		res.Status = StatusDuplicate
		return res
	}

	email, err := n.Renderer.Render(BuildPayload(cand))
	if err != nil {
		res.Status = StatusFailed
		res.Err = fmt.Errorf("render: %w", err)
		n.Log.Error("template rendering failed", "job_key", jobKey, "err", err)
		return res
	}

	maxAttempts := n.Retry.maxAttempts()
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			delay := n.Retry.delayBefore(attempt)
			n.Log.Warn("retrying delivery",
				"job_key", jobKey,
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"delay", delay,
			)
			if err := n.Sleep(ctx, delay); err != nil {
				res.Status = StatusFailed
				res.Attempts = attempt - 1
				res.Err = err
				return res
			}
		}

		if err := n.Deliverer.Deliver(ctx, email); err != nil {
			lastErr = err
			n.Log.Warn("delivery failed",
				"job_key", jobKey,
				"attempt", attempt,
				"max_attempts", maxAttempts,
				"err", err,
			)
			continue
		}

		res.Status = StatusSent
		res.Attempts = attempt
		n.Log.Info("notification sent",
			"job_key", jobKey,
			"company", cand.Job.Company,
			"title", cand.Job.Title,
			"attempts", attempt,
		)

		if _, err := n.Ledger.RecordAlert(ctx, jobKey, versionHash, n.Now()); err != nil {
			// the email went out; report sent but surface the ledger
			// failure so the operator knows dedup may be compromised
			res.Err = fmt.Errorf("record alert: %w", err)
			n.Log.Error("alert ledger write failed after send", "job_key", jobKey, "err", err)
		}
		return res
	}

	res.Status = StatusFailed
	res.Attempts = maxAttempts
	res.Err = lastErr
	n.Log.Error("delivery exhausted",
		"job_key", jobKey,
		"attempts", maxAttempts,
		"err", lastErr,
	)
	return res
}

// BatchStats aggregates SendBatch outcomes.
type BatchStats struct {
	Sent       int
	Skipped    int
	Duplicates int
	Failed     int
}

// SendBatch processes candidates in order, never letting one failure
// stop the rest.
func (n *Notifier) SendBatch(ctx context.Context, cands []Candidate) ([]Result, BatchStats) {
	results := make([]Result, 0, len(cands))
	var stats BatchStats

	for _, cand := range cands {
		res := n.Send(ctx, cand)
		results = append(results, res)
		switch res.Status {
		case StatusSent:
			stats.Sent++
		case StatusSkipped:
			stats.Skipped++
		case StatusDuplicate:
			stats.Duplicates++
		case StatusFailed:
			stats.Failed++
		}
	}
	return results, stats
}
