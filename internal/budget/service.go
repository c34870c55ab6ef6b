package budget

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-gov/meridian/internal/events"
)

// Repository defines persistence operations for budgets and accounts.
type Repository interface {
	CreateBudget(ctx context.Context, b *Budget) error
	GetBudget(ctx context.Context, id int64) (*Budget, error)
	ListBudgets(ctx context.Context, fiscalYear int) ([]Budget, error)
	RecordExpenditure(ctx context.Context, id int64, amount float64) (*Budget, error)
	SetStatus(ctx context.Context, id int64, status string) (*Budget, error)
	Summary(ctx context.Context) (Summary, error)
}

// CreateBudgetInput carries validated fields for budget creation.
type CreateBudgetInput struct {
	Name       string  `json:"name" validate:"required"`
	Department string  `json:"department" validate:"required"`
	FiscalYear int     `json:"fiscal_year" validate:"required,gte=2000,lte=2100"`
	Amount     float64 `json:"amount" validate:"required,gt=0"`
}

// Service handles budget business logic.
type Service struct {
	repo     Repository
	bus      *events.Bus
	validate *validator.Validate
}

// NewService builds Service instance. The bus may be nil.
func NewService(repo Repository, bus *events.Bus) *Service {
	return &Service{repo: repo, bus: bus, validate: validator.New()}
}

// Create validates input and persists a new draft budget.
func (s *Service) Create(ctx context.Context, input CreateBudgetInput) (*Budget, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	b := &Budget{
		Reference:  uuid.NewString(),
		Name:       input.Name,
		Department: input.Department,
		FiscalYear: input.FiscalYear,
		Amount:     input.Amount,
		Status:     StatusDraft,
	}
	if err := s.repo.CreateBudget(ctx, b); err != nil {
		return nil, err
	}
	events.Publish(s.bus, events.BudgetChanged{BudgetID: b.ID, Action: "created"})
	return b, nil
}

// Get fetches one budget by id.
func (s *Service) Get(ctx context.Context, id int64) (*Budget, error) {
	return s.repo.GetBudget(ctx, id)
}

// List returns budgets for a fiscal year; zero means all years.
func (s *Service) List(ctx context.Context, fiscalYear int) ([]Budget, error) {
	return s.repo.ListBudgets(ctx, fiscalYear)
}

// RecordExpenditure books spend against a budget and announces the change.
func (s *Service) RecordExpenditure(ctx context.Context, id int64, amount float64) (*Budget, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("expenditure amount must be positive: %.2f", amount)
	}
	b, err := s.repo.RecordExpenditure(ctx, id, amount)
	if err != nil {
		return nil, err
	}
	events.Publish(s.bus, events.BudgetChanged{BudgetID: id, Action: "expenditure"})
	return b, nil
}

// Submit moves a draft budget into the approval queue.
func (s *Service) Submit(ctx context.Context, id int64) (*Budget, error) {
	b, err := s.repo.SetStatus(ctx, id, StatusPending)
	if err != nil {
		return nil, err
	}
	events.Publish(s.bus, events.BudgetChanged{BudgetID: id, Action: "submitted"})
	return b, nil
}

// Approve marks a pending budget as approved.
func (s *Service) Approve(ctx context.Context, id int64) (*Budget, error) {
	b, err := s.repo.SetStatus(ctx, id, StatusApproved)
	if err != nil {
		return nil, err
	}
	events.Publish(s.bus, events.BudgetChanged{BudgetID: id, Action: "approved"})
	return b, nil
}

// Summary aggregates dashboard figures from the repository.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	return s.repo.Summary(ctx)
}
