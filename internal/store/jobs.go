package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"jobscan-engine/internal/domain"
)

// ErrNotFound is returned by targeted updates when the row doesn't exist.
var ErrNotFound = errors.New("store: record not found")

// Jobs is the persistence surface for normalized postings, keyed by job_key.
type Jobs struct {
	DB *sql.DB
}

const jobColumns = `job_key, source_type, source_identifier, external_id, title, company,
location, description, url, posted_at, updated_at, first_seen_at, last_seen_at, content_hash`

// GetByKey returns the stored job, or nil when it was never seen.
func (s Jobs) GetByKey(ctx context.Context, jobKey string) (*domain.Job, error) {
	row := s.DB.QueryRowContext(ctx, `
SELECT `+jobColumns+`
FROM jobs
WHERE job_key = ?;`, jobKey)

	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobKey, err)
	}
	return j, nil
}

// Upsert fully overwrites the row for j.JobKey, inserting if absent.
func (s Jobs) Upsert(ctx context.Context, j domain.Job) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO jobs (`+jobColumns+`)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(job_key) DO UPDATE SET
  source_type = excluded.source_type,
  source_identifier = excluded.source_identifier,
  external_id = excluded.external_id,
  title = excluded.title,
  company = excluded.company,
  location = excluded.location,
  description = excluded.description,
  url = excluded.url,
  posted_at = excluded.posted_at,
  updated_at = excluded.updated_at,
  first_seen_at = excluded.first_seen_at,
  last_seen_at = excluded.last_seen_at,
  content_hash = excluded.content_hash;`,
		j.JobKey,
		j.SourceType,
		j.SourceIdentifier,
		j.ExternalID,
		j.Title,
		j.Company,
		nullString(j.Location),
		j.Description,
		j.URL,
		nullTimeText(j.PostedAt),
		nullTimeText(j.UpdatedAt),
		timeText(j.FirstSeenAt),
		timeText(j.LastSeenAt),
		j.ContentHash,
	)
	if err != nil {
		return fmt.Errorf("upsert job %s: %w", j.JobKey, err)
	}
	return nil
}

// TouchLastSeen advances only last_seen_at, the cheap path for unchanged jobs.
func (s Jobs) TouchLastSeen(ctx context.Context, jobKey string, t time.Time) error {
	res, err := s.DB.ExecContext(ctx, `
UPDATE jobs SET last_seen_at = ? WHERE job_key = ?;`, timeText(t), jobKey)
	if err != nil {
		return fmt.Errorf("touch job %s: %w", jobKey, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("touch job %s: %w", jobKey, ErrNotFound)
	}
	return nil
}

// BySource lists jobs for one source, most recently seen first.
func (s Jobs) BySource(ctx context.Context, sourceType, sourceIdentifier string) ([]domain.Job, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT `+jobColumns+`
FROM jobs
WHERE source_type = ? AND source_identifier = ?
ORDER BY last_seen_at DESC;`, sourceType, sourceIdentifier)
	if err != nil {
		return nil, fmt.Errorf("jobs by source: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// Stale lists jobs not observed since cutoff, oldest first. They likely
// disappeared from their boards.
func (s Jobs) Stale(ctx context.Context, cutoff time.Time) ([]domain.Job, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT `+jobColumns+`
FROM jobs
WHERE last_seen_at < ?
ORDER BY last_seen_at ASC;`, timeText(cutoff))
	if err != nil {
		return nil, fmt.Errorf("stale jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// Recent lists jobs seen in the window, newest first, capped at limit.
func (s Jobs) Recent(ctx context.Context, since time.Time, limit int) ([]domain.Job, error) {
	if limit <= 0 || limit > 2000 {
		limit = 500
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT `+jobColumns+`
FROM jobs
WHERE last_seen_at >= ?
ORDER BY last_seen_at DESC
LIMIT ?;`, timeText(since), limit)
	if err != nil {
		return nil, fmt.Errorf("recent jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(r rowScanner) (*domain.Job, error) {
	var j domain.Job
	var location sql.NullString
	var postedAt, updatedAt sql.NullString
	var firstSeen, lastSeen string

	err := r.Scan(
		&j.JobKey,
		&j.SourceType,
		&j.SourceIdentifier,
		&j.ExternalID,
		&j.Title,
		&j.Company,
		&location,
		&j.Description,
		&j.URL,
		&postedAt,
		&updatedAt,
		&firstSeen,
		&lastSeen,
		&j.ContentHash,
	)
	if err != nil {
		return nil, err
	}

	j.Location = location.String
	if j.PostedAt, err = scanNullTime(postedAt); err != nil {
		return nil, err
	}
	if j.UpdatedAt, err = scanNullTime(updatedAt); err != nil {
		return nil, err
	}
	if j.FirstSeenAt, err = parseTimeText(firstSeen); err != nil {
		return nil, err
	}
	if j.LastSeenAt, err = parseTimeText(lastSeen); err != nil {
		return nil, err
	}
	return &j, nil
}

func collectJobs(rows *sql.Rows) ([]domain.Job, error) {
	var out []domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
