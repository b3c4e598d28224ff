package store

import (
	"context"
	"fmt"
	"time"

	"database/sql"

	_ "modernc.org/sqlite"
)

func Open(path string) (*sql.DB, error) {
	// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
	// WAL keeps readers unblocked during a scan and is what the
	// /db/checkpoint endpoint flushes.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// sqlite wants a single writer
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// timeLayout keeps full nanosecond precision with no digits dropped, so
// the textual ordering SQL relies on matches chronological ordering.
// RFC3339Nano would trim trailing zeros and let "…:01Z" sort after
// "…:01.5Z".
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// timeText is the canonical timestamp encoding for all tables.
func timeText(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTimeText(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nullTimeText(t *time.Time) any {
	if t == nil {
		return nil
	}
	return timeText(*t)
}

func scanNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTimeText(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
