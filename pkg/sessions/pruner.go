package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultPruneSchedule runs the pruner at minute zero of every hour.
const DefaultPruneSchedule = "0 * * * *"

// ScheduledPruner removes idle sessions from a Pruner on a cron schedule.
type ScheduledPruner struct {
	store    Pruner
	schedule string
	maxAge   time.Duration
	logger   *slog.Logger

	cron *cron.Cron
}

// NewScheduledPruner validates schedule, a standard five-field cron expression.
func NewScheduledPruner(store Pruner, schedule string, maxAge time.Duration, logger *slog.Logger) (*ScheduledPruner, error) {
	if store == nil {
		return nil, errors.New("session pruner requires a store")
	}

	if maxAge <= 0 {
		return nil, errors.New("session pruner max age must be positive")
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}

	return &ScheduledPruner{
		store:    store,
		schedule: schedule,
		maxAge:   maxAge,
		logger:   logger.With("module", "session_pruner", "schedule", schedule),
	}, nil
}

// Start schedules the pruning job. Runs never overlap.
func (p *ScheduledPruner) Start(ctx context.Context) error {
	p.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	if _, err := p.cron.AddFunc(p.schedule, func() { p.PruneOnce(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule session pruning: %w", err)
	}

	p.cron.Start()
	p.logger.InfoContext(ctx, "Session pruner started", "max_age", p.maxAge)

	return nil
}

// Stop waits for a running job to finish.
func (p *ScheduledPruner) Stop(ctx context.Context) {
	if p.cron == nil {
		return
	}

	<-p.cron.Stop().Done()
	p.logger.InfoContext(ctx, "Session pruner stopped")
}

// PruneOnce removes sessions idle for longer than the max age.
func (p *ScheduledPruner) PruneOnce(ctx context.Context) int {
	removed, err := p.store.Prune(ctx, time.Now().Add(-p.maxAge))
	if err != nil {
		p.logger.ErrorContext(ctx, "Session pruning failed", "error", err)

		return 0
	}

	if removed > 0 {
		p.logger.InfoContext(ctx, "Pruned idle sessions", "removed", removed)
	}

	return removed
}
