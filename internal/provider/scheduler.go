package provider

import (
	"context"
	"time"

	"github.com/dhawalhost/dirsync/internal/sync"
	"go.uber.org/zap"
)

// Scheduler drives the host-side timers: full sync and incremental
// sync run on independent tickers. The engine serializes overlapping
// runs internally, so the two timers never need to coordinate.
type Scheduler struct {
	provider *Provider
	logger   *zap.Logger
}

// NewScheduler creates a scheduler over the provider's sync entry
// points.
func NewScheduler(p *Provider, logger *zap.Logger) *Scheduler {
	return &Scheduler{provider: p, logger: logger}
}

// Run blocks until ctx is cancelled, firing sync runs on the periods
// from the provider configuration. A zero period disables that timer.
func (s *Scheduler) Run(ctx context.Context) {
	cfg := s.provider.cfg

	if cfg.FullSyncPeriod > 0 {
		go s.loop(ctx, "full", cfg.FullSyncPeriod, s.provider.SyncFull)
	}
	if cfg.ChangedSyncPeriod > 0 {
		go s.loop(ctx, "incremental", cfg.ChangedSyncPeriod, s.provider.SyncChanged)
	}

	<-ctx.Done()
}

func (s *Scheduler) loop(ctx context.Context, mode string, period time.Duration, run func(context.Context) (sync.Result, error)) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := run(ctx); err != nil {
				s.logger.Error("scheduled sync run failed",
					zap.String("mode", mode),
					zap.Error(err))
			}
		}
	}
}
