package jobs

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDashboardRefresh invalidates and rewarms the dashboard metric cache.
	TaskDashboardRefresh = "dashboard:refresh"
	// TaskBudgetRollup refreshes the budget reporting rollups.
	TaskBudgetRollup = "budget:rollup"
)

// DashboardRefreshPayload carries the trigger context for a refresh run.
type DashboardRefreshPayload struct {
	RunID  string `json:"run_id"`
	Reason string `json:"reason"`
}

// NewDashboardRefreshTask constructs an Asynq task with a fresh run id.
func NewDashboardRefreshTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(DashboardRefreshPayload{RunID: uuid.NewString(), Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDashboardRefresh, data), nil
}

// BudgetRollupPayload scopes a rollup run to one fiscal year; zero means all.
type BudgetRollupPayload struct {
	RunID      string `json:"run_id"`
	FiscalYear int    `json:"fiscal_year"`
}

// NewBudgetRollupTask constructs an Asynq task.
func NewBudgetRollupTask(fiscalYear int) (*asynq.Task, error) {
	data, err := json.Marshal(BudgetRollupPayload{RunID: uuid.NewString(), FiscalYear: fiscalYear})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBudgetRollup, data), nil
}
