// Package scheduler runs a task on a fixed interval until the context
// ends. The first run happens immediately.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

type Task func(ctx context.Context) error

func Every(ctx context.Context, interval time.Duration, name string, log *slog.Logger, task Task) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("task", name)

	t := time.NewTicker(interval)
	defer t.Stop()

	if err := task(ctx); err != nil {
		log.Error("task failed", "err", err)
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("scheduler stopped")
			return
		case <-t.C:
			if err := task(ctx); err != nil {
				log.Error("task failed", "err", err)
			}
		}
	}
}
