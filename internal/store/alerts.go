package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"jobscan-engine/internal/domain"
)

// Alerts is the append-only ledger of sent notifications. A row per
// (job_key, version_hash) means that content version was alerted exactly once.
type Alerts struct {
	DB *sql.DB
}

func (s Alerts) HasBeenSent(ctx context.Context, jobKey, versionHash string) (bool, error) {
	var one int
	err := s.DB.QueryRowContext(ctx, `
SELECT 1 FROM alerts WHERE job_key = ? AND version_hash = ? LIMIT 1;`,
		jobKey, versionHash).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check alert %s: %w", jobKey, err)
	}
	return true, nil
}

// RecordAlert inserts the ledger entry, or returns the existing one when it
// is already there. Calling it twice with identical arguments is safe and
// never errors; the original sent_at wins.
func (s Alerts) RecordAlert(ctx context.Context, jobKey, versionHash string, sentAt time.Time) (domain.AlertRecord, error) {
	_, err := s.DB.ExecContext(ctx, `
INSERT OR IGNORE INTO alerts(job_key, version_hash, sent_at)
VALUES(?,?,?);`, jobKey, versionHash, timeText(sentAt))
	if err != nil {
		return domain.AlertRecord{}, fmt.Errorf("record alert %s: %w", jobKey, err)
	}

	// Read back so a duplicate insert returns the original entry.
	var stored string
	err = s.DB.QueryRowContext(ctx, `
SELECT sent_at FROM alerts WHERE job_key = ? AND version_hash = ?;`,
		jobKey, versionHash).Scan(&stored)
	if err != nil {
		return domain.AlertRecord{}, fmt.Errorf("read back alert %s: %w", jobKey, err)
	}
	t, err := parseTimeText(stored)
	if err != nil {
		return domain.AlertRecord{}, fmt.Errorf("read back alert %s: %w", jobKey, err)
	}

	return domain.AlertRecord{JobKey: jobKey, VersionHash: versionHash, SentAt: t}, nil
}

// ForJob returns every alert sent for a job across all content versions,
// newest first.
func (s Alerts) ForJob(ctx context.Context, jobKey string) ([]domain.AlertRecord, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT job_key, version_hash, sent_at
FROM alerts
WHERE job_key = ?
ORDER BY sent_at DESC;`, jobKey)
	if err != nil {
		return nil, fmt.Errorf("alerts for job %s: %w", jobKey, err)
	}
	defer rows.Close()

	var out []domain.AlertRecord
	for rows.Next() {
		var rec domain.AlertRecord
		var sentAt string
		if err := rows.Scan(&rec.JobKey, &rec.VersionHash, &sentAt); err != nil {
			return nil, err
		}
		if rec.SentAt, err = parseTimeText(sentAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteOlderThan trims ledger entries sent before cutoff and reports how
// many were removed.
func (s Alerts) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `
DELETE FROM alerts WHERE sent_at < ?;`, timeText(cutoff))
	if err != nil {
		return 0, fmt.Errorf("cleanup alerts: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
