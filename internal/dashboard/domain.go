// Package dashboard implements the timer-driven metric notification service.
//
// Metrics are named, periodically recomputed values with independent
// subscriber lists. Delivery follows the same snapshot-before-invoke
// discipline as the event bus: registries are copied under a short-held
// mutex and callbacks run outside it, so a callback may subscribe,
// unsubscribe or trigger a refresh without deadlocking.
package dashboard

import "time"

// Metric identifiers recomputed on every refresh cycle.
const (
	MetricTotalBudget        = "TotalBudget"
	MetricSpentAmount        = "SpentAmount"
	MetricRemainingBudget    = "RemainingBudget"
	MetricAccountCount       = "AccountCount"
	MetricPendingApprovals   = "PendingApprovals"
	MetricUtilityReceivables = "UtilityReceivables"
)

// MetricValue is one computed dashboard figure.
type MetricValue struct {
	MetricID   string    `json:"metric_id"`
	Value      float64   `json:"value"`
	Display    string    `json:"display"`
	ComputedAt time.Time `json:"computed_at"`
}

// Callback receives a freshly computed value for one metric.
type Callback func(MetricValue)
