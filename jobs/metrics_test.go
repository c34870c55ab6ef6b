package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInstrumentCountsResults(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	ok := m.Instrument(TaskDashboardRefresh, func(ctx context.Context, t *asynq.Task) error {
		return nil
	})
	failing := m.Instrument(TaskBudgetRollup, func(ctx context.Context, t *asynq.Task) error {
		return errors.New("view is locked")
	})

	task := asynq.NewTask(TaskDashboardRefresh, nil)
	if err := ok(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ok(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := failing(context.Background(), asynq.NewTask(TaskBudgetRollup, nil)); err == nil {
		t.Fatal("expected the handler error to pass through")
	}

	if got := testutil.ToFloat64(m.processed.WithLabelValues(TaskDashboardRefresh, "ok")); got != 2 {
		t.Fatalf("expected 2 ok runs, got %v", got)
	}
	if got := testutil.ToFloat64(m.processed.WithLabelValues(TaskBudgetRollup, "error")); got != 1 {
		t.Fatalf("expected 1 error run, got %v", got)
	}
}
