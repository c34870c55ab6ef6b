package events

// Domain events carried on the bus. Payloads are plain values; subscribers
// must not retain references into mutable service state.

// BudgetChanged signals a create/update/delete on a budget record.
type BudgetChanged struct {
	BudgetID int64
	Action   string
}

// DashboardUpdated carries one recomputed metric value to dashboard listeners.
type DashboardUpdated struct {
	MetricID string
	Data     any
}

// DashboardError reports a failed metric recomputation cycle.
type DashboardError struct {
	Err error
}

// RoleAssigned signals a role grant to a user.
type RoleAssigned struct {
	UserID string
	Role   string
}

// RoleRevoked signals a role removal from a user.
type RoleRevoked struct {
	UserID string
	Role   string
}
