package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AssetCategory represents the kind of tradable instrument
type AssetCategory string

const (
	AssetCategoryStock AssetCategory = "STOCK"
	AssetCategoryFund  AssetCategory = "FUND"
)

// Asset represents a tradable instrument with a live, admin-updatable price.
// CurrentPrice of zero means the price feed has not populated the asset yet;
// valuations fall back to the recorded purchase price in that case.
type Asset struct {
	ID           uuid.UUID
	Name         string
	Ticker       string // unique, upper-case
	Category     AssetCategory
	CurrentPrice decimal.Decimal
	LastUpdated  time.Time
}

// Validate ensures the asset adheres to domain rules
func (a *Asset) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("%w: asset name cannot be empty", ErrInvalidValue)
	}
	if a.Ticker == "" {
		return fmt.Errorf("%w: asset ticker cannot be empty", ErrInvalidValue)
	}
	if a.Category != AssetCategoryStock && a.Category != AssetCategoryFund {
		return fmt.Errorf("%w: asset category must be STOCK or FUND", ErrInvalidValue)
	}
	if a.CurrentPrice.IsNegative() {
		return fmt.Errorf("%w: asset price cannot be negative", ErrInvalidValue)
	}
	return nil
}

// PriceQuote is the registry state returned by a successful price write.
// It is the payload handed to the broadcaster for fan-out.
type PriceQuote struct {
	AssetID   uuid.UUID
	Price     decimal.Decimal
	UpdatedAt time.Time
}
