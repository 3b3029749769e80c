// Package goals implements owner-scoped CRUD for investment goals and the
// purchases recorded under them. Reads elsewhere decorate these entities with
// valuation and aggregation results; this package only enforces ownership
// and entity rules.
package goals

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Battlearmour2000/invest-tracker/internal/domain"
)

// CreateGoalInput represents the input for creating or updating a goal
type CreateGoalInput struct {
	Name                string
	Category            domain.AssetCategory
	AssetID             *uuid.UUID
	TargetAmount        decimal.Decimal
	YearsToInvest       int
	MonthlyContribution decimal.Decimal
}

// AddPurchaseInput represents the input for recording a purchase
type AddPurchaseInput struct {
	GoalID        uuid.UUID
	AssetID       *uuid.UUID
	Date          time.Time
	PurchasePrice decimal.Decimal
	Quantity      decimal.Decimal
	Notes         string
}

// Service handles goal and purchase operations
type Service struct {
	GoalRepo     domain.GoalRepository
	PurchaseRepo domain.PurchaseRepository
	AssetRepo    domain.AssetRepository
}

// NewService creates a new goals Service instance
func NewService(goalRepo domain.GoalRepository, purchaseRepo domain.PurchaseRepository, assetRepo domain.AssetRepository) *Service {
	return &Service{
		GoalRepo:     goalRepo,
		PurchaseRepo: purchaseRepo,
		AssetRepo:    assetRepo,
	}
}

// CreateGoal creates a goal owned by the acting user.
func (s *Service) CreateGoal(ctx context.Context, session domain.Session, input CreateGoalInput) (*domain.Goal, error) {
	goal := &domain.Goal{
		ID:                  uuid.New(),
		UserID:              session.UserID,
		Name:                input.Name,
		Category:            input.Category,
		AssetID:             input.AssetID,
		TargetAmount:        input.TargetAmount,
		YearsToInvest:       input.YearsToInvest,
		MonthlyContribution: input.MonthlyContribution,
		CreatedAt:           time.Now().UTC(),
	}
	if err := goal.Validate(); err != nil {
		return nil, err
	}

	if input.AssetID != nil {
		if _, err := s.AssetRepo.GetByID(ctx, *input.AssetID); err != nil {
			return nil, err
		}
	}

	if err := s.GoalRepo.Create(ctx, goal); err != nil {
		return nil, err
	}
	return goal, nil
}

// GetGoal retrieves a goal owned by the acting user. Goals owned by other
// users are reported as not found so existence never leaks.
func (s *Service) GetGoal(ctx context.Context, session domain.Session, id uuid.UUID) (*domain.Goal, error) {
	goal, err := s.GoalRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if goal.UserID != session.UserID {
		return nil, fmt.Errorf("goal %s: %w", id, domain.ErrNotFound)
	}
	return goal, nil
}

// ListGoals retrieves all goals owned by the acting user.
func (s *Service) ListGoals(ctx context.Context, session domain.Session) ([]*domain.Goal, error) {
	return s.GoalRepo.ListByUser(ctx, session.UserID)
}

// UpdateGoal replaces the mutable fields of an owned goal.
func (s *Service) UpdateGoal(ctx context.Context, session domain.Session, id uuid.UUID, input CreateGoalInput) (*domain.Goal, error) {
	goal, err := s.GetGoal(ctx, session, id)
	if err != nil {
		return nil, err
	}

	goal.Name = input.Name
	goal.Category = input.Category
	goal.AssetID = input.AssetID
	goal.TargetAmount = input.TargetAmount
	goal.YearsToInvest = input.YearsToInvest
	goal.MonthlyContribution = input.MonthlyContribution
	if err := goal.Validate(); err != nil {
		return nil, err
	}

	if input.AssetID != nil {
		if _, err := s.AssetRepo.GetByID(ctx, *input.AssetID); err != nil {
			return nil, err
		}
	}

	if err := s.GoalRepo.Update(ctx, goal); err != nil {
		return nil, err
	}
	return goal, nil
}

// DeleteGoal removes an owned goal together with its purchases.
func (s *Service) DeleteGoal(ctx context.Context, session domain.Session, id uuid.UUID) error {
	if _, err := s.GetGoal(ctx, session, id); err != nil {
		return err
	}
	return s.GoalRepo.Delete(ctx, id)
}

// AddPurchase records a buy against an owned goal. When the purchase does not
// name an asset it defaults to the goal's linked asset, if any.
func (s *Service) AddPurchase(ctx context.Context, session domain.Session, input AddPurchaseInput) (*domain.Purchase, error) {
	goal, err := s.GetGoal(ctx, session, input.GoalID)
	if err != nil {
		return nil, err
	}

	assetID := input.AssetID
	if assetID == nil {
		assetID = goal.AssetID
	}
	if assetID != nil {
		if _, err := s.AssetRepo.GetByID(ctx, *assetID); err != nil {
			return nil, err
		}
	}

	purchase := &domain.Purchase{
		ID:            uuid.New(),
		GoalID:        goal.ID,
		AssetID:       assetID,
		Date:          input.Date,
		PurchasePrice: input.PurchasePrice,
		Quantity:      input.Quantity,
		Notes:         input.Notes,
	}
	if err := purchase.Validate(); err != nil {
		return nil, err
	}

	if err := s.PurchaseRepo.Create(ctx, purchase); err != nil {
		return nil, err
	}
	return purchase, nil
}

// GetPurchase retrieves a purchase under one of the acting user's goals.
func (s *Service) GetPurchase(ctx context.Context, session domain.Session, id uuid.UUID) (*domain.Purchase, error) {
	purchase, err := s.PurchaseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetGoal(ctx, session, purchase.GoalID); err != nil {
		return nil, fmt.Errorf("purchase %s: %w", id, domain.ErrNotFound)
	}
	return purchase, nil
}

// ListPurchases retrieves every purchase across the acting user's goals.
func (s *Service) ListPurchases(ctx context.Context, session domain.Session) ([]*domain.Purchase, error) {
	return s.PurchaseRepo.ListByUser(ctx, session.UserID)
}

// ListGoalPurchases retrieves the purchases under one owned goal.
func (s *Service) ListGoalPurchases(ctx context.Context, session domain.Session, goalID uuid.UUID) ([]*domain.Purchase, error) {
	if _, err := s.GetGoal(ctx, session, goalID); err != nil {
		return nil, err
	}
	return s.PurchaseRepo.ListByGoal(ctx, goalID)
}

// DeletePurchase removes a purchase under one of the acting user's goals.
func (s *Service) DeletePurchase(ctx context.Context, session domain.Session, id uuid.UUID) error {
	if _, err := s.GetPurchase(ctx, session, id); err != nil {
		return err
	}
	return s.PurchaseRepo.Delete(ctx, id)
}
