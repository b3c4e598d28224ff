package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"jobscan-engine/internal/domain"
)

// Sources tracks per-source health. Rows are written on every attempt and
// never deleted.
type Sources struct {
	DB *sql.DB
}

// RecordSuccess upserts the source row with a fresh success timestamp and
// clears any previous error message.
func (s Sources) RecordSuccess(ctx context.Context, identifier, name, sourceType string, t time.Time) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO sources(identifier, name, source_type, last_success_at, last_error_at, error_message)
VALUES(?,?,?,?,NULL,NULL)
ON CONFLICT(identifier) DO UPDATE SET
  name = excluded.name,
  source_type = excluded.source_type,
  last_success_at = excluded.last_success_at,
  error_message = NULL;`,
		identifier, name, sourceType, timeText(t))
	if err != nil {
		return fmt.Errorf("record source success %s: %w", identifier, err)
	}
	return nil
}

// RecordError upserts the source row with the error timestamp and message.
// The last success timestamp is left intact.
func (s Sources) RecordError(ctx context.Context, identifier, name, sourceType string, t time.Time, message string) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO sources(identifier, name, source_type, last_success_at, last_error_at, error_message)
VALUES(?,?,?,NULL,?,?)
ON CONFLICT(identifier) DO UPDATE SET
  name = excluded.name,
  source_type = excluded.source_type,
  last_error_at = excluded.last_error_at,
  error_message = excluded.error_message;`,
		identifier, name, sourceType, timeText(t), message)
	if err != nil {
		return fmt.Errorf("record source error %s: %w", identifier, err)
	}
	return nil
}

// All lists every known source ordered by name.
func (s Sources) All(ctx context.Context) ([]domain.SourceStatus, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT identifier, name, source_type, last_success_at, last_error_at, error_message
FROM sources
ORDER BY name;`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []domain.SourceStatus
	for rows.Next() {
		var st domain.SourceStatus
		var success, errAt, msg sql.NullString
		if err := rows.Scan(&st.Identifier, &st.Name, &st.SourceType, &success, &errAt, &msg); err != nil {
			return nil, err
		}
		if st.LastSuccessAt, err = scanNullTime(success); err != nil {
			return nil, err
		}
		if st.LastErrorAt, err = scanNullTime(errAt); err != nil {
			return nil, err
		}
		st.ErrorMessage = msg.String
		out = append(out, st)
	}
	return out, rows.Err()
}
