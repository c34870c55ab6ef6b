package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BudgetRollupRunner refreshes the reporting rollups used by exports.
type BudgetRollupRunner struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
}

// Handle processes TaskBudgetRollup.
func (b BudgetRollupRunner) Handle(ctx context.Context, t *asynq.Task) error {
	var payload BudgetRollupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if b.Pool == nil {
		return nil
	}
	if _, err := b.Pool.Exec(ctx, `REFRESH MATERIALIZED VIEW CONCURRENTLY budget_department_rollup`); err != nil {
		if b.Logger != nil {
			b.Logger.Error("refresh budget_department_rollup", slog.Any("error", err))
		}
		return err
	}
	if b.Logger != nil {
		b.Logger.Info("refreshed budget_department_rollup",
			slog.String("job", TaskBudgetRollup),
			slog.String("run_id", payload.RunID))
	}
	return nil
}
