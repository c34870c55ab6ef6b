// Package budget manages municipal budget and account master data.
package budget

import "time"

// Budget statuses.
const (
	StatusDraft    = "DRAFT"
	StatusPending  = "PENDING_APPROVAL"
	StatusApproved = "APPROVED"
	StatusClosed   = "CLOSED"
)

// Budget represents one departmental budget line for a fiscal year.
type Budget struct {
	ID         int64
	Reference  string
	Name       string
	Department string
	FiscalYear int
	Amount     float64
	Spent      float64
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Remaining returns the unspent portion of the budget.
func (b Budget) Remaining() float64 {
	return b.Amount - b.Spent
}

// Account represents a ledger account tracked by the municipality.
type Account struct {
	ID        int64
	Code      string
	Name      string
	Kind      string
	Balance   float64
	CreatedAt time.Time
}

// Summary aggregates the figures the dashboard reports on.
type Summary struct {
	TotalBudget        float64
	SpentAmount        float64
	AccountCount       int64
	PendingApprovals   int64
	UtilityReceivables float64
}
