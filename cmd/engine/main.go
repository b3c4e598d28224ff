package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"jobscan-engine/internal/config"
	"jobscan-engine/internal/events"
	"jobscan-engine/internal/fetch"
	"jobscan-engine/internal/httpapi"
	"jobscan-engine/internal/match"
	"jobscan-engine/internal/notify"
	"jobscan-engine/internal/pipeline"
	"jobscan-engine/internal/scheduler"
	"jobscan-engine/internal/secrets"
	"jobscan-engine/internal/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("engine exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	// data dir: env wins so a desktop shell can pass its own
	dataDir := os.Getenv("JOBSCAN_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	// one engine per data dir; a second instance would race the db and
	// double-send alerts
	lock := flock.New(filepath.Join(dataDir, "jobscan.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("instance lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another engine instance already holds %s", lock.Path())
	}
	defer lock.Unlock()

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		return fmt.Errorf("config bootstrap: %w", err)
	}

	loadCfg := func() (config.Config, error) {
		cfg, err := config.Load(userCfgPath)
		if err != nil {
			return cfg, err
		}
		normalized, vr := config.NormalizeAndValidate(cfg)
		if !vr.OK() {
			return cfg, fmt.Errorf("invalid config: %s", strings.Join(vr.Errors, "; "))
		}
		return normalized, nil
	}
	cfg, err := loadCfg()
	if err != nil {
		return fmt.Errorf("config load (%s): %w", userCfgPath, err)
	}

	log := newLogger(cfg.Logging.Level)
	slog.SetDefault(log)
	log.Info("engine starting", "data_dir", dataDir, "config", userCfgPath)

	var cfgVal atomic.Value
	cfgVal.Store(cfg)
	currentCfg := func() config.Config { return cfgVal.Load().(config.Config) }

	dbPath := filepath.Join(dataDir, "jobscan.db")
	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open db %s: %w", dbPath, err)
	}
	defer db.Close()
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	hub := events.NewHub()

	registry := fetch.NewRegistry(fetch.Options{
		Timeout:   cfg.HTTPTimeout(),
		UserAgent: cfg.Advanced.UserAgent,
		MaxJobs:   cfg.Advanced.MaxJobsPerSource,
		Log:       log,
	})

	renderer, err := notify.NewTemplateRenderer()
	if err != nil {
		return fmt.Errorf("notification templates: %w", err)
	}

	password, err := secrets.GetSMTPPassword(secrets.SMTPKeyringAccount(cfg))
	if err != nil {
		log.Warn("no SMTP password available, delivery will be unauthenticated", "err", err)
	}
	deliverer := notify.NewSMTPDeliverer(cfg.Email, password, log)

	notifier := notify.New(renderer, deliverer, store.Alerts{DB: db}, notify.RetryPolicy{
		MaxRetries:   cfg.Email.MaxRetries,
		InitialDelay: cfg.Email.RetryInitialDelay(),
		Multiplier:   cfg.Email.RetryBackoffMultiplier,
	}, log)

	pipe := pipeline.New(
		currentCfg,
		registry,
		store.Jobs{DB: db},
		store.Sources{DB: db},
		criteriaMatcher{cfg: currentCfg, log: log},
		notifier,
		hub,
		log,
	)

	scans := &httpapi.ScanTracker{}

	mux := httpapi.NewMux(httpapi.Deps{
		DB:          db,
		Hub:         hub,
		Runner:      pipe,
		CfgVal:      &cfgVal,
		Scans:       scans,
		UserCfgPath: userCfgPath,
		LoadCfg:     loadCfg,
		Log:         log,
	})

	port := cfg.App.Port
	if port == 0 {
		port = 38471
	}
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	log.Info("api listening", "addr", "http://"+addr, "db", dbPath)

	srv := &http.Server{
		Handler: httpapi.Chain(mux,
			httpapi.RequestID,
			httpapi.Recover(log),
			httpapi.AccessLog(log),
			httpapi.Cors,
		),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		scheduler.Every(ctx, cfg.Interval(), "scan", log, func(ctx context.Context) error {
			runScan(ctx, pipe, scans)
			return nil
		})
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	err = g.Wait()
	log.Info("engine stopped")
	return err
}

// runScan executes one pipeline run and mirrors its outcome into the
// status the API serves. A manual run already in flight is fine; the
// pipeline's own lock turns this into a skipped result.
func runScan(ctx context.Context, pipe *pipeline.Pipeline, scans *httpapi.ScanTracker) {
	scans.Begin(time.Now().UTC().Format(time.RFC3339))
	res := pipe.RunOnce(ctx)
	scans.Finish(res, time.Now().UTC().Format(time.RFC3339))
}

// criteriaMatcher rebuilds the matcher from the live config so criteria
// edits apply on the next run without a restart.
type criteriaMatcher struct {
	cfg func() config.Config
	log *slog.Logger
}

func (m criteriaMatcher) Evaluate(jobKey string, text match.Text) match.Verdict {
	search := m.cfg().Search
	return match.NewMatcher(match.Criteria{
		RequiredTerms: search.RequiredTerms,
		KeywordGroups: search.KeywordGroups,
		ExcludeTerms:  search.ExcludeTerms,
	}, m.log).Evaluate(jobKey, text)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
