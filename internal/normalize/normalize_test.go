package normalize

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobscan-engine/internal/config"
	"jobscan-engine/internal/domain"
)

type fakeLookup struct {
	jobs map[string]domain.Job
	err  error
}

func (f *fakeLookup) GetByKey(_ context.Context, key string) (*domain.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	if j, ok := f.jobs[key]; ok {
		cp := j
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeLookup) put(j domain.Job) {
	if f.jobs == nil {
		f.jobs = map[string]domain.Job{}
	}
	f.jobs[j.JobKey] = j
}

var testSource = config.Source{
	Name: "Acme", Type: "greenhouse", Identifier: "acme", Enabled: true,
}

func rawJob() domain.RawJob {
	return domain.RawJob{
		ExternalID:  "42",
		Title:       "Backend   Engineer ",
		Company:     "Acme",
		Location:    "  Remote ",
		Description: "We need  Python",
		URL:         "https://boards.greenhouse.io/acme/jobs/42",
	}
}

func TestObservationLifecycle(t *testing.T) {
	ctx := context.Background()
	lookup := &fakeLookup{}
	t0 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	// first observation: new
	n := New(lookup, t0, nil)
	res, err := n.Normalize(ctx, rawJob(), testSource)
	require.NoError(t, err)

	assert.True(t, res.IsNew)
	assert.True(t, res.ContentChanged)
	assert.True(t, res.ShouldUpsert())
	assert.True(t, res.ShouldRematch())
	assert.Equal(t, "Backend Engineer", res.Job.Title, "whitespace collapsed")
	assert.Equal(t, "Remote", res.Job.Location)
	assert.True(t, res.Job.FirstSeenAt.Equal(t0))
	assert.True(t, res.Job.LastSeenAt.Equal(t0))

	lookup.put(res.Job)

	// identical data later: unchanged, first_seen preserved, last_seen advanced
	t1 := t0.Add(time.Hour)
	n = New(lookup, t1, nil)
	res2, err := n.Normalize(ctx, rawJob(), testSource)
	require.NoError(t, err)

	assert.False(t, res2.IsNew)
	assert.False(t, res2.ContentChanged)
	assert.False(t, res2.ShouldUpsert())
	assert.False(t, res2.ShouldRematch())
	assert.True(t, res2.Job.FirstSeenAt.Equal(t0))
	assert.True(t, res2.Job.LastSeenAt.Equal(t1))
	assert.Equal(t, res.Job.ContentHash, res2.Job.ContentHash)

	// altered description: updated, first_seen still from the first observation
	t2 := t1.Add(time.Hour)
	raw := rawJob()
	raw.Description = "We need Python and Go"
	n = New(lookup, t2, nil)
	res3, err := n.Normalize(ctx, raw, testSource)
	require.NoError(t, err)

	assert.False(t, res3.IsNew)
	assert.True(t, res3.ContentChanged)
	assert.True(t, res3.ShouldUpsert())
	assert.True(t, res3.Job.FirstSeenAt.Equal(t0))
}

func TestCaseAndWhitespaceOnlyEditIsUnchanged(t *testing.T) {
	ctx := context.Background()
	lookup := &fakeLookup{}
	t0 := time.Now().UTC()

	n := New(lookup, t0, nil)
	res, err := n.Normalize(ctx, rawJob(), testSource)
	require.NoError(t, err)
	lookup.put(res.Job)

	raw := rawJob()
	raw.Title = "  BACKEND engineer"
	raw.Description = "we NEED python"

	res2, err := New(lookup, t0.Add(time.Minute), nil).Normalize(ctx, raw, testSource)
	require.NoError(t, err)
	assert.False(t, res2.ContentChanged)
}

func TestEmptyLocationAbsent(t *testing.T) {
	raw := rawJob()
	raw.Location = "   "

	res, err := New(&fakeLookup{}, time.Now().UTC(), nil).Normalize(context.Background(), raw, testSource)
	require.NoError(t, err)

	assert.Empty(t, res.Job.Location, "whitespace-only location stored as absent")
	assert.Equal(t, "", res.Text.LocationNormalized, "but present as empty string in the match bundle")
}

func TestMatchBundleVariants(t *testing.T) {
	res, err := New(&fakeLookup{}, time.Now().UTC(), nil).Normalize(context.Background(), rawJob(), testSource)
	require.NoError(t, err)

	assert.Equal(t, "Backend Engineer", res.Text.TitleOriginal)
	assert.Equal(t, "backend engineer", res.Text.TitleNormalized)
	assert.Contains(t, res.Text.FullTextNormalized, "backend engineer")
	assert.Contains(t, res.Text.FullTextNormalized, "remote")
}

func TestEmptyExternalIDRejected(t *testing.T) {
	raw := rawJob()
	raw.ExternalID = "  "

	_, err := New(&fakeLookup{}, time.Now().UTC(), nil).Normalize(context.Background(), raw, testSource)
	assert.Error(t, err)
}

func TestLookupErrorPropagates(t *testing.T) {
	lookup := &fakeLookup{err: errors.New("db closed")}

	_, err := New(lookup, time.Now().UTC(), nil).Normalize(context.Background(), rawJob(), testSource)
	assert.Error(t, err)
}

func TestBatchContinuesPastFailures(t *testing.T) {
	lookup := &fakeLookup{}
	bad := rawJob()
	bad.ExternalID = ""
	good := rawJob()

	results := New(lookup, time.Now().UTC(), nil).Batch(
		context.Background(),
		[]domain.RawJob{bad, good},
		testSource,
	)

	require.Len(t, results, 1)
	assert.Equal(t, "42", results[0].Job.ExternalID)
}
