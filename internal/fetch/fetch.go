// Package fetch pulls raw postings from ATS job-board APIs. One adapter
// per ATS type; all of them speak through a shared rate-limited HTTP
// client and return classified errors.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"jobscan-engine/internal/config"
	"jobscan-engine/internal/domain"
)

// Fetcher is one ATS adapter. FetchJobs returns every currently visible
// posting for the source; failures come back as *Error.
type Fetcher interface {
	Type() string
	FetchJobs(ctx context.Context, src config.Source) ([]domain.RawJob, error)
}

// Options configure the adapter set. Zero values get sane defaults.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	MaxJobs   int // per source, 0 = unlimited
	Limiter   *HostLimiter
	Log       *slog.Logger
}

// Registry holds the known adapters keyed by source type.
type Registry struct {
	fetchers map[string]Fetcher
}

// NewRegistry builds the full adapter set from one shared client.
func NewRegistry(opts Options) *Registry {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "JobScan/1.0 (+local)"
	}
	if opts.Limiter == nil {
		opts.Limiter = NewHostLimiter(2, 4)
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	c := &client{
		hc:        &http.Client{Timeout: opts.Timeout},
		limiter:   opts.Limiter,
		userAgent: opts.UserAgent,
		log:       opts.Log.With("component", "fetch"),
	}

	r := &Registry{fetchers: map[string]Fetcher{}}
	for _, f := range []Fetcher{
		newGreenhouse(c, opts.MaxJobs),
		newLever(c, opts.MaxJobs),
		newAshby(c, opts.MaxJobs),
	} {
		r.fetchers[f.Type()] = f
	}
	return r
}

// ForSource picks the adapter for a configured source.
func (r *Registry) ForSource(src config.Source) (Fetcher, error) {
	f, ok := r.fetchers[src.Type]
	if !ok {
		return nil, fmt.Errorf("fetch: no adapter for source type %q", src.Type)
	}
	return f, nil
}

// Types lists the supported source types, sorted.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.fetchers))
	for t := range r.fetchers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// truncate caps a posting list at max when max > 0.
func truncate(jobs []domain.RawJob, max int, log *slog.Logger, src config.Source) []domain.RawJob {
	if max <= 0 || len(jobs) <= max {
		return jobs
	}
	log.Warn("truncating source results",
		"source", src.Identifier,
		"total", len(jobs),
		"kept", max,
	)
	return jobs[:max]
}
