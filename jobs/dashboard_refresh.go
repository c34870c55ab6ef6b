package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-gov/meridian/internal/dashboard"
)

// DashboardRefresher wires the dashboard cache and source into the worker.
type DashboardRefresher struct {
	Cache  *dashboard.Cache
	Source dashboard.Source
	Logger *slog.Logger
}

// Handle processes TaskDashboardRefresh: bump the cache version so stale
// snapshots are gone, then recompute once so the next read is warm.
func (d DashboardRefresher) Handle(ctx context.Context, t *asynq.Task) error {
	var payload DashboardRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if err := d.Cache.Bump(ctx); err != nil {
		return err
	}
	if d.Source != nil {
		if _, err := d.Source.Snapshot(ctx); err != nil {
			return err
		}
	}
	if d.Logger != nil {
		d.Logger.Info("dashboard cache rewarmed",
			slog.String("job", TaskDashboardRefresh),
			slog.String("run_id", payload.RunID),
			slog.String("reason", payload.Reason))
	}
	return nil
}
