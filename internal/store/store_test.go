package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobscan-engine/internal/domain"
)

func openTestDB(t *testing.T) (Jobs, Alerts, Sources) {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(db))
	return Jobs{DB: db}, Alerts{DB: db}, Sources{DB: db}
}

func testJob(key string, seen time.Time) domain.Job {
	return domain.Job{
		JobKey:           key,
		SourceType:       "greenhouse",
		SourceIdentifier: "acme",
		ExternalID:       "42",
		Title:            "Backend Engineer",
		Company:          "Acme",
		Location:         "Remote",
		Description:      "We need Python",
		URL:              "https://boards.greenhouse.io/acme/jobs/42",
		FirstSeenAt:      seen,
		LastSeenAt:       seen,
		ContentHash:      "hash-v1",
	}
}

func TestJobsUpsertAndGet(t *testing.T) {
	jobs, _, _ := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	missing, err := jobs.GetByKey(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	j := testJob("k1", now)
	require.NoError(t, jobs.Upsert(ctx, j))

	got, err := jobs.GetByKey(ctx, "k1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Backend Engineer", got.Title)
	assert.Equal(t, "Remote", got.Location)
	assert.True(t, got.FirstSeenAt.Equal(now))

	// full overwrite on change
	j.Title = "Backend Engineer II"
	j.ContentHash = "hash-v2"
	require.NoError(t, jobs.Upsert(ctx, j))

	got, err = jobs.GetByKey(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer II", got.Title)
	assert.Equal(t, "hash-v2", got.ContentHash)
}

func TestJobsTouchLastSeen(t *testing.T) {
	jobs, _, _ := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, jobs.Upsert(ctx, testJob("k1", now)))

	later := now.Add(time.Hour)
	require.NoError(t, jobs.TouchLastSeen(ctx, "k1", later))

	got, err := jobs.GetByKey(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, got.LastSeenAt.Equal(later))
	assert.True(t, got.FirstSeenAt.Equal(now), "touch must not move first_seen_at")

	err = jobs.TouchLastSeen(ctx, "absent", later)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJobsStale(t *testing.T) {
	jobs, _, _ := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	old := testJob("old", now.Add(-72*time.Hour))
	fresh := testJob("fresh", now)
	fresh.ExternalID = "43"
	require.NoError(t, jobs.Upsert(ctx, old))
	require.NoError(t, jobs.Upsert(ctx, fresh))

	stale, err := jobs.Stale(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "old", stale[0].JobKey)
}

func TestAlertsIdempotentRecord(t *testing.T) {
	_, alerts, _ := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	sent, err := alerts.HasBeenSent(ctx, "k1", "v1")
	require.NoError(t, err)
	assert.False(t, sent)

	first, err := alerts.RecordAlert(ctx, "k1", "v1", now)
	require.NoError(t, err)
	assert.True(t, first.SentAt.Equal(now))

	// second insert with the same key pair returns the original entry
	second, err := alerts.RecordAlert(ctx, "k1", "v1", now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, second.SentAt.Equal(now))

	sent, err = alerts.HasBeenSent(ctx, "k1", "v1")
	require.NoError(t, err)
	assert.True(t, sent)

	recs, err := alerts.ForJob(ctx, "k1")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestAlertsDeleteOlderThan(t *testing.T) {
	_, alerts, _ := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := alerts.RecordAlert(ctx, "k1", "v1", now.Add(-48*time.Hour))
	require.NoError(t, err)
	_, err = alerts.RecordAlert(ctx, "k1", "v2", now)
	require.NoError(t, err)

	n, err := alerts.DeleteOlderThan(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	sent, err := alerts.HasBeenSent(ctx, "k1", "v2")
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestTimeTextOrdersAtSubSecondBoundaries(t *testing.T) {
	// fixed-precision output keeps textual ordering chronological; the
	// nasty pair is a whole second against a fraction of the next one
	base := time.Date(2026, 8, 1, 12, 0, 1, 0, time.UTC)
	later := base.Add(500 * time.Millisecond)

	assert.True(t, timeText(base) < timeText(later),
		"%q must sort before %q", timeText(base), timeText(later))

	parsed, err := parseTimeText(timeText(later))
	require.NoError(t, err)
	assert.True(t, parsed.Equal(later))
}

func TestAlertsDeleteOlderThanSubSecond(t *testing.T) {
	_, alerts, _ := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 1, 0, time.UTC)

	_, err := alerts.RecordAlert(ctx, "k1", "v1", base)
	require.NoError(t, err)
	_, err = alerts.RecordAlert(ctx, "k1", "v2", base.Add(500*time.Millisecond))
	require.NoError(t, err)

	n, err := alerts.DeleteOlderThan(ctx, base.Add(200*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "only the entry before the cutoff goes")

	sent, err := alerts.HasBeenSent(ctx, "k1", "v2")
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestOpenEnablesWAL(t *testing.T) {
	jobs, _, _ := openTestDB(t)

	var mode string
	require.NoError(t, jobs.DB.QueryRow(`PRAGMA journal_mode;`).Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestSourcesHealth(t *testing.T) {
	_, _, sources := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, sources.RecordError(ctx, "acme", "Acme", "greenhouse", now, "boom"))

	all, err := sources.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "boom", all[0].ErrorMessage)
	assert.Nil(t, all[0].LastSuccessAt)

	later := now.Add(time.Minute)
	require.NoError(t, sources.RecordSuccess(ctx, "acme", "Acme", "greenhouse", later))

	all, err = sources.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.NotNil(t, all[0].LastSuccessAt)
	assert.True(t, all[0].LastSuccessAt.Equal(later))
	assert.Empty(t, all[0].ErrorMessage)
	// error timestamp is history, success does not erase it
	require.NotNil(t, all[0].LastErrorAt)
}
