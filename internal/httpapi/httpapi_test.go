package httpapi

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobscan-engine/internal/config"
	"jobscan-engine/internal/events"
	"jobscan-engine/internal/pipeline"
)

type fakeRunner struct {
	mu    sync.Mutex
	runs  int
	last  *pipeline.RunResult
	block chan struct{} // when set, RunOnce waits on it
}

func (f *fakeRunner) RunOnce(_ context.Context) pipeline.RunResult {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs++
	res := pipeline.RunResult{RunID: "r1", StartedAt: time.Now().UTC(), FinishedAt: time.Now().UTC()}
	f.last = &res
	return res
}

func (f *fakeRunner) LastResult() *pipeline.RunResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func validConfig() config.Config {
	var cfg config.Config
	cfg.Sources = []config.Source{{Name: "Acme", Type: "greenhouse", Identifier: "acme", Enabled: true}}
	cfg.Search.RequiredTerms = []string{"python"}
	cfg.ScanInterval = "15m"
	cfg.Email.From = "scan@example.test"
	cfg.Email.To = "me@example.test"
	cfg.Email.SMTPHost = "smtp.example.test"
	cfg.Email.SMTPPort = 587
	cfg.Email.RetryBackoffMultiplier = 2
	return cfg
}

func testDeps(t *testing.T) Deps {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "config.yml")
	cfg, vr := config.NormalizeAndValidate(validConfig())
	require.True(t, vr.OK(), "fixture config must validate: %v", vr.Errors)
	require.NoError(t, config.SaveAtomic(cfgPath, cfg))

	cfgVal := &atomic.Value{}
	cfgVal.Store(cfg)

	return Deps{
		Hub:         events.NewHub(),
		Runner:      &fakeRunner{},
		CfgVal:      cfgVal,
		Scans:       &ScanTracker{},
		UserCfgPath: cfgPath,
		LoadCfg:     func() (config.Config, error) { return config.Load(cfgPath) },
	}
}

func TestHealth(t *testing.T) {
	mux := NewMux(testDeps(t))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok":true`)
}

func TestMethodNotAllowed(t *testing.T) {
	mux := NewMux(testDeps(t))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/scan/run", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestScanRunAndStatus(t *testing.T) {
	deps := testDeps(t)
	runner := deps.Runner.(*fakeRunner)
	mux := NewMux(deps)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scan/run", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok":true`)

	// the run happens in the background
	require.Eventually(t, func() bool {
		runner.mu.Lock()
		defer runner.mu.Unlock()
		return runner.runs == 1
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		return !deps.Scans.Get().Running
	}, time.Second, 5*time.Millisecond)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scan/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"run_id":"r1"`)
}

func TestConfigGet(t *testing.T) {
	mux := NewMux(testDeps(t))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/config", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "acme")
}

func TestConfigPutRejectsInvalid(t *testing.T) {
	deps := testDeps(t)
	mux := NewMux(deps)

	// required term also excluded: validation must fail
	body := `{
		"Sources": [{"Name":"Acme","Type":"greenhouse","Identifier":"acme","Enabled":true}],
		"Search": {"RequiredTerms":["python"],"ExcludeTerms":["python"]},
		"ScanInterval": "15m",
		"Email": {"From":"a@b.test","To":"c@d.test","SMTPHost":"smtp.test","SMTPPort":587,"RetryBackoffMultiplier":2}
	}`
	req := httptest.NewRequest(http.MethodPut, "/config", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "errors")

	// stored config untouched
	cur := deps.CfgVal.Load().(config.Config)
	assert.Empty(t, cur.Search.ExcludeTerms)
}

func TestRequestIDMiddleware(t *testing.T) {
	h := Chain(NewMux(testDeps(t)), RequestID)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "fixed-id", rec.Header().Get("X-Request-ID"))
}

func TestScanRunWhileRunning(t *testing.T) {
	deps := testDeps(t)
	runner := deps.Runner.(*fakeRunner)
	runner.block = make(chan struct{})
	mux := NewMux(deps)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scan/run", nil))
	require.Contains(t, rec.Body.String(), `"ok":true`)

	// the first run is still blocked; a second trigger must be refused
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scan/run", nil))
	assert.Contains(t, rec.Body.String(), "already running")

	close(runner.block)
	require.Eventually(t, func() bool {
		return !deps.Scans.Get().Running
	}, time.Second, 5*time.Millisecond)
	assert.NotEmpty(t, deps.Scans.Get().LastOkAt)
}

func TestScanTrackerSkipDoesNotClearRunning(t *testing.T) {
	tr := &ScanTracker{}
	require.True(t, tr.Begin("t1"))
	assert.False(t, tr.Begin("t2"), "second begin while running is refused")

	// a scheduled run that lost the pipeline lock reports skipped; the
	// run that holds the lock still owns the flag
	tr.Finish(pipeline.RunResult{Skipped: true}, "t3")
	st := tr.Get()
	assert.True(t, st.Running)
	assert.Contains(t, st.LastError, "skipped")

	tr.Finish(pipeline.RunResult{}, "t4")
	st = tr.Get()
	assert.False(t, st.Running)
	assert.Empty(t, st.LastError)
	assert.Equal(t, "t4", st.LastOkAt)
}

func TestScanTrackerConcurrentUpdates(t *testing.T) {
	tr := &ScanTracker{}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tr.Begin("t") {
				tr.Finish(pipeline.RunResult{}, "done")
			} else {
				tr.Finish(pipeline.RunResult{Skipped: true}, "skip")
			}
		}()
	}
	wg.Wait()

	st := tr.Get()
	assert.False(t, st.Running, "every completed run released the flag")
	assert.Equal(t, "done", st.LastOkAt)
}

// TestEventsStreamThroughMiddleware drives /events through the exact
// middleware chain the binary installs; the access-log wrapper has to
// keep the writer flushable or the stream cannot start.
func TestEventsStreamThroughMiddleware(t *testing.T) {
	deps := testDeps(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := Chain(NewMux(deps), RequestID, Recover(log), AccessLog(log), Cors)

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readEvent := func() string {
		for i := 0; i < 20; i++ {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "data: ") {
				return line
			}
		}
		t.Fatal("no data line in stream")
		return ""
	}

	// the ping confirms the subscription is registered
	assert.Contains(t, readEvent(), `"type":"ping"`)

	deps.Hub.Publish(events.MakeEvent("r1", events.TypeRunStarted, 1, nil))
	assert.Contains(t, readEvent(), `"type":"run_started"`)
}

func TestCorsPreflights(t *testing.T) {
	h := Chain(NewMux(testDeps(t)), Cors)

	req := httptest.NewRequest(http.MethodOptions, "/scan/run", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, 204, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
