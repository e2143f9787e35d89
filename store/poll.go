package store

import (
	"context"
	"time"
)

// Run refreshes every feed at once and then once per interval, until ctx is
// cancelled.
func (r *Refresher) Run(ctx context.Context, interval time.Duration) error {
	r.logger.Info("refresher starting", "interval", interval)

	r.poll(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresher stopping")
			return ctx.Err()
		case <-ticker.C:
			r.poll(ctx)
		}
	}
}

func (r *Refresher) poll(ctx context.Context) {
	results, err := r.RefreshAll(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error("failed to refresh feeds", "err", err)
		}
		return
	}

	added, failed := 0, 0
	for _, result := range results {
		added += result.NewItems
		if result.Err != nil {
			failed++
		}
	}
	r.logger.Info("refreshed feeds", "feeds", len(results), "new", added, "failed", failed)
}
