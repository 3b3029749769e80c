package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Goal represents a user's named target for accumulated investment value.
// A goal is owned by exactly one user and collects the purchases recorded
// against it.
type Goal struct {
	ID                  uuid.UUID
	UserID              uuid.UUID
	Name                string
	Category            AssetCategory
	AssetID             *uuid.UUID // optional default asset for new purchases
	TargetAmount        decimal.Decimal
	YearsToInvest       int
	MonthlyContribution decimal.Decimal
	CreatedAt           time.Time
}

// Validate ensures the goal adheres to domain rules
func (g *Goal) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("%w: goal name cannot be empty", ErrInvalidValue)
	}
	if g.Category != AssetCategoryStock && g.Category != AssetCategoryFund {
		return fmt.Errorf("%w: goal category must be STOCK or FUND", ErrInvalidValue)
	}
	if !g.TargetAmount.IsPositive() {
		return fmt.Errorf("%w: target amount must be positive", ErrInvalidValue)
	}
	if g.YearsToInvest <= 0 {
		return fmt.Errorf("%w: years to invest must be positive", ErrInvalidValue)
	}
	if g.MonthlyContribution.IsNegative() {
		return fmt.Errorf("%w: monthly contribution cannot be negative", ErrInvalidValue)
	}
	return nil
}
