package dashboard

import (
	"context"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/meridian-gov/meridian/internal/budget"
)

// Source computes a full snapshot of all known metric values.
type Source interface {
	Snapshot(ctx context.Context) (map[string]MetricValue, error)
}

// SummaryProvider is the slice of the budget service the source reads from.
type SummaryProvider interface {
	Summary(ctx context.Context) (budget.Summary, error)
}

// BudgetSource derives dashboard metrics from budget master data, with an
// optional Redis-backed snapshot cache in front of the aggregate query.
type BudgetSource struct {
	budgets SummaryProvider
	cache   *Cache
	printer *message.Printer
	now     func() time.Time
}

// NewBudgetSource wires a SummaryProvider with the cache helper.
func NewBudgetSource(budgets SummaryProvider, cache *Cache) *BudgetSource {
	return &BudgetSource{
		budgets: budgets,
		cache:   cache,
		printer: message.NewPrinter(language.English),
		now:     time.Now,
	}
}

// WithNow overrides the source clock for testing.
func (s *BudgetSource) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Snapshot returns all metric values, serving from cache when warm.
func (s *BudgetSource) Snapshot(ctx context.Context) (map[string]MetricValue, error) {
	if cached, ok := s.cache.GetSnapshot(ctx); ok {
		return cached, nil
	}
	summary, err := s.budgets.Summary(ctx)
	if err != nil {
		return nil, err
	}
	at := s.now().UTC()
	values := map[string]MetricValue{
		MetricTotalBudget:        s.currency(MetricTotalBudget, summary.TotalBudget, at),
		MetricSpentAmount:        s.currency(MetricSpentAmount, summary.SpentAmount, at),
		MetricRemainingBudget:    s.currency(MetricRemainingBudget, summary.TotalBudget-summary.SpentAmount, at),
		MetricAccountCount:       s.count(MetricAccountCount, summary.AccountCount, at),
		MetricPendingApprovals:   s.count(MetricPendingApprovals, summary.PendingApprovals, at),
		MetricUtilityReceivables: s.currency(MetricUtilityReceivables, summary.UtilityReceivables, at),
	}
	if err := s.cache.SetSnapshot(ctx, values); err != nil {
		// Cache write failure is not fatal; the snapshot is still good.
		return values, nil
	}
	return values, nil
}

func (s *BudgetSource) currency(id string, v float64, at time.Time) MetricValue {
	display := s.printer.Sprintf("$%v", number.Decimal(v, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
	return MetricValue{MetricID: id, Value: v, Display: display, ComputedAt: at}
}

func (s *BudgetSource) count(id string, v int64, at time.Time) MetricValue {
	display := s.printer.Sprintf("%v", number.Decimal(v))
	return MetricValue{MetricID: id, Value: float64(v), Display: display, ComputedAt: at}
}
