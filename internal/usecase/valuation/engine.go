// Package valuation computes per-purchase figures from the recorded buy and
// the asset's live price. It is pure: no I/O, no side effects, and repeated
// calls over the same inputs always produce identical results.
package valuation

import (
	"github.com/shopspring/decimal"

	"github.com/Battlearmour2000/invest-tracker/internal/domain"
)

// Quote carries an asset's live price into the engine. Missing marks a
// purchase whose asset reference is dangling (asset row gone, or no asset
// linked at all), which is different from an asset whose price is still zero.
type Quote struct {
	Price   decimal.Decimal
	Missing bool
}

// MissingQuote is the quote used for purchases without a resolvable asset.
var MissingQuote = Quote{Missing: true}

// Valuation is the computed view of a single purchase.
type Valuation struct {
	TotalCost    decimal.Decimal
	CurrentValue decimal.Decimal
	GainLoss     decimal.Decimal
	ROI          decimal.Decimal // percentage, full precision; round at the API boundary
	IsProfitable bool
	HasValue     bool // false when the asset reference is dangling
}

var hundred = decimal.NewFromInt(100)

// Valuate computes the figures for one purchase given its asset quote.
//
// Rules:
//   - total_cost = quantity × purchase_price, always.
//   - current_value = quantity × live price; a zero live price falls back to
//     the purchase price so the value is never undefined before the price
//     feed populates the asset.
//   - A missing asset contributes zero current value while the cost basis
//     still counts, so gain_loss is the full negative cost.
//   - roi = 0 when total_cost is zero, else gain_loss / total_cost × 100.
//   - Breakeven counts as profitable.
func Valuate(p *domain.Purchase, q Quote) Valuation {
	totalCost := p.Quantity.Mul(p.PurchasePrice)

	var currentValue decimal.Decimal
	hasValue := !q.Missing
	if hasValue {
		price := q.Price
		if !price.IsPositive() {
			price = p.PurchasePrice
		}
		currentValue = p.Quantity.Mul(price)
	}

	gainLoss := currentValue.Sub(totalCost)

	roi := decimal.Zero
	if !totalCost.IsZero() {
		roi = gainLoss.Div(totalCost).Mul(hundred)
	}

	return Valuation{
		TotalCost:    totalCost,
		CurrentValue: currentValue,
		GainLoss:     gainLoss,
		ROI:          roi,
		IsProfitable: !gainLoss.IsNegative(),
		HasValue:     hasValue,
	}
}
