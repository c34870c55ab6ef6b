package budget

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-gov/meridian/internal/events"
	"github.com/meridian-gov/meridian/internal/shared"
)

type memoryRepo struct {
	budgets  map[int64]*Budget
	accounts []Account
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{budgets: make(map[int64]*Budget)}
}

func (r *memoryRepo) CreateBudget(ctx context.Context, b *Budget) error {
	r.nextID++
	b.ID = r.nextID
	copied := *b
	r.budgets[b.ID] = &copied
	return nil
}

func (r *memoryRepo) GetBudget(ctx context.Context, id int64) (*Budget, error) {
	b, ok := r.budgets[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (r *memoryRepo) ListBudgets(ctx context.Context, fiscalYear int) ([]Budget, error) {
	var out []Budget
	for _, b := range r.budgets {
		if fiscalYear == 0 || b.FiscalYear == fiscalYear {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *memoryRepo) RecordExpenditure(ctx context.Context, id int64, amount float64) (*Budget, error) {
	b, ok := r.budgets[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	if amount > b.Remaining() {
		return nil, shared.ErrInsufficientFunds
	}
	b.Spent += amount
	copied := *b
	return &copied, nil
}

func (r *memoryRepo) SetStatus(ctx context.Context, id int64, status string) (*Budget, error) {
	b, ok := r.budgets[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	b.Status = status
	copied := *b
	return &copied, nil
}

func (r *memoryRepo) Summary(ctx context.Context) (Summary, error) {
	var s Summary
	for _, b := range r.budgets {
		if b.Status == StatusClosed {
			continue
		}
		s.TotalBudget += b.Amount
		s.SpentAmount += b.Spent
		if b.Status == StatusPending {
			s.PendingApprovals++
		}
	}
	s.AccountCount = int64(len(r.accounts))
	for _, a := range r.accounts {
		if a.Kind == "UTILITY_RECEIVABLE" {
			s.UtilityReceivables += a.Balance
		}
	}
	return s, nil
}

func TestCreateValidatesInput(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateBudgetInput{Name: "", Department: "Water", FiscalYear: 2026, Amount: 100})
	require.Error(t, err)

	_, err = svc.Create(ctx, CreateBudgetInput{Name: "Mains", Department: "Water", FiscalYear: 2026, Amount: -5})
	require.Error(t, err)

	b, err := svc.Create(ctx, CreateBudgetInput{Name: "Mains", Department: "Water", FiscalYear: 2026, Amount: 250000})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, b.Status)
	require.NotEmpty(t, b.Reference)
}

func TestExpenditureAndWorkflowPublishEvents(t *testing.T) {
	bus := events.NewBus(nil, nil)
	repo := newMemoryRepo()
	svc := NewService(repo, bus)
	ctx := context.Background()

	var actions []string
	events.Subscribe(bus, func(e events.BudgetChanged) { actions = append(actions, e.Action) })

	b, err := svc.Create(ctx, CreateBudgetInput{Name: "Sewer", Department: "Water", FiscalYear: 2026, Amount: 1000})
	require.NoError(t, err)

	_, err = svc.RecordExpenditure(ctx, b.ID, 400)
	require.NoError(t, err)

	_, err = svc.RecordExpenditure(ctx, b.ID, -1)
	require.Error(t, err, "negative spend must be rejected before touching the repo")

	_, err = svc.Submit(ctx, b.ID)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, b.ID)
	require.NoError(t, err)

	require.Equal(t, []string{"created", "expenditure", "submitted", "approved"}, actions)

	got, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, 400.0, got.Spent)
	require.Equal(t, 600.0, got.Remaining())
	require.Equal(t, StatusApproved, got.Status)
}

func TestExpenditureBeyondRemainingIsRejected(t *testing.T) {
	bus := events.NewBus(nil, nil)
	repo := newMemoryRepo()
	svc := NewService(repo, bus)
	ctx := context.Background()

	var published int
	events.Subscribe(bus, func(e events.BudgetChanged) {
		if e.Action == "expenditure" {
			published++
		}
	})

	b, err := svc.Create(ctx, CreateBudgetInput{Name: "Fleet", Department: "Transportation", FiscalYear: 2026, Amount: 500})
	require.NoError(t, err)

	_, err = svc.RecordExpenditure(ctx, b.ID, 600)
	require.ErrorIs(t, err, shared.ErrInsufficientFunds)
	require.Zero(t, published, "rejected spend must not announce a change")

	got, err := svc.Get(ctx, b.ID)
	require.NoError(t, err)
	require.Zero(t, got.Spent)

	_, err = svc.RecordExpenditure(ctx, b.ID, 500)
	require.NoError(t, err)
	require.Equal(t, 1, published)
}

func TestSummaryAggregates(t *testing.T) {
	repo := newMemoryRepo()
	repo.accounts = []Account{
		{Code: "1000", Kind: "CASH", Balance: 50},
		{Code: "1100", Kind: "UTILITY_RECEIVABLE", Balance: 120},
		{Code: "1101", Kind: "UTILITY_RECEIVABLE", Balance: 80},
	}
	svc := NewService(repo, nil)
	ctx := context.Background()

	b1, err := svc.Create(ctx, CreateBudgetInput{Name: "Roads", Department: "Public Works", FiscalYear: 2026, Amount: 1000})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateBudgetInput{Name: "Parks", Department: "Recreation", FiscalYear: 2026, Amount: 500})
	require.NoError(t, err)

	_, err = svc.RecordExpenditure(ctx, b1.ID, 300)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, b1.ID)
	require.NoError(t, err)

	s, err := svc.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 1500.0, s.TotalBudget)
	require.Equal(t, 300.0, s.SpentAmount)
	require.Equal(t, int64(1), s.PendingApprovals)
	require.Equal(t, int64(3), s.AccountCount)
	require.Equal(t, 200.0, s.UtilityReceivables)
}
