package budget

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-gov/meridian/internal/platform/db"
	"github.com/meridian-gov/meridian/internal/shared"
)

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const budgetColumns = `id, reference, name, department, fiscal_year, amount, spent, status, created_at, updated_at`

// CreateBudget inserts a budget row.
func (r *PGRepository) CreateBudget(ctx context.Context, b *Budget) error {
	now := time.Now().UTC()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO budgets (reference, name, department, fiscal_year, amount, spent, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, 0, $6, $7, $7)
		 RETURNING id`,
		b.Reference, b.Name, b.Department, b.FiscalYear, b.Amount, b.Status, now,
	).Scan(&b.ID)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return shared.ErrDuplicate
		}
		return err
	}
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
}

// GetBudget fetches one budget by id.
func (r *PGRepository) GetBudget(ctx context.Context, id int64) (*Budget, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = $1`, id)
	return scanBudget(row)
}

// ListBudgets lists budgets, optionally restricted to one fiscal year.
func (r *PGRepository) ListBudgets(ctx context.Context, fiscalYear int) ([]Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budgets ORDER BY fiscal_year DESC, department`
	args := []any{}
	if fiscalYear > 0 {
		query = `SELECT ` + budgetColumns + ` FROM budgets WHERE fiscal_year = $1 ORDER BY department`
		args = append(args, fiscalYear)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// RecordExpenditure books spend against a budget. The row is locked for the
// duration of the transaction so a concurrent expenditure cannot push spend
// past the budgeted amount.
func (r *PGRepository) RecordExpenditure(ctx context.Context, id int64, amount float64) (*Budget, error) {
	var b *Budget
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var remaining float64
		err := tx.QueryRow(ctx,
			`SELECT amount - spent FROM budgets WHERE id = $1 FOR UPDATE`, id).Scan(&remaining)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return err
		}
		if amount > remaining {
			return shared.ErrInsufficientFunds
		}
		row := tx.QueryRow(ctx,
			`UPDATE budgets SET spent = spent + $2, updated_at = $3 WHERE id = $1
			 RETURNING `+budgetColumns, id, amount, time.Now().UTC())
		b, err = scanBudget(row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// SetStatus transitions a budget's workflow status.
func (r *PGRepository) SetStatus(ctx context.Context, id int64, status string) (*Budget, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE budgets SET status = $2, updated_at = $3 WHERE id = $1
		 RETURNING `+budgetColumns, id, status, time.Now().UTC())
	return scanBudget(row)
}

// Summary aggregates dashboard figures in one round trip.
func (r *PGRepository) Summary(ctx context.Context) (Summary, error) {
	var s Summary
	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE((SELECT SUM(amount) FROM budgets WHERE status <> 'CLOSED'), 0),
			COALESCE((SELECT SUM(spent) FROM budgets WHERE status <> 'CLOSED'), 0),
			(SELECT COUNT(*) FROM accounts),
			(SELECT COUNT(*) FROM budgets WHERE status = 'PENDING_APPROVAL'),
			COALESCE((SELECT SUM(balance) FROM accounts WHERE kind = 'UTILITY_RECEIVABLE'), 0)
	`).Scan(&s.TotalBudget, &s.SpentAmount, &s.AccountCount, &s.PendingApprovals, &s.UtilityReceivables)
	if err != nil {
		return Summary{}, err
	}
	return s, nil
}

func scanBudget(row pgx.Row) (*Budget, error) {
	var b Budget
	err := row.Scan(&b.ID, &b.Reference, &b.Name, &b.Department, &b.FiscalYear,
		&b.Amount, &b.Spent, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}
