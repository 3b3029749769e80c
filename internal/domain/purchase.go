package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Purchase represents one recorded buy transaction against a goal and asset
// (the "monthly investment"). PurchasePrice is the unit price captured at buy
// time and stays fixed regardless of the asset's live price. Purchases are
// immutable after creation.
type Purchase struct {
	ID            uuid.UUID
	GoalID        uuid.UUID
	AssetID       *uuid.UUID // nil when the purchase carries no asset reference
	Date          time.Time
	PurchasePrice decimal.Decimal
	Quantity      decimal.Decimal // up to 4 decimal places
	Notes         string
}

// Validate ensures the purchase adheres to domain rules
func (p *Purchase) Validate() error {
	if p.GoalID == uuid.Nil {
		return fmt.Errorf("%w: purchase must reference a goal", ErrInvalidValue)
	}
	if !p.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidValue)
	}
	if p.Quantity.Exponent() < -4 {
		return fmt.Errorf("%w: quantity supports at most 4 decimal places", ErrInvalidValue)
	}
	if p.PurchasePrice.IsNegative() {
		return fmt.Errorf("%w: purchase price cannot be negative", ErrInvalidValue)
	}
	if p.Date.IsZero() {
		return fmt.Errorf("%w: purchase date is required", ErrInvalidValue)
	}
	return nil
}
