// Package aggregation rolls valuation results up to goal-level and
// portfolio-level totals. The roll-up itself is pure; the Service wrapper
// fetches entities and live prices from the repositories at read time, so
// every read reflects the most recent registry write.
package aggregation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Battlearmour2000/invest-tracker/internal/domain"
	"github.com/Battlearmour2000/invest-tracker/internal/usecase/valuation"
)

// GoalStats is the computed roll-up over one goal's purchases.
// PortfolioROI is nil when nothing has been invested yet.
type GoalStats struct {
	TotalInvested         decimal.Decimal
	CurrentPortfolioValue decimal.Decimal
	NetGainLoss           decimal.Decimal
	PortfolioROI          *decimal.Decimal
	Progress              decimal.Decimal // percentage of target reached
}

// PortfolioStats is the roll-up across every goal a user owns.
// TotalReturn is nil when nothing has been invested yet.
type PortfolioStats struct {
	TotalTarget       decimal.Decimal
	TotalInvested     decimal.Decimal
	OverallProgress   decimal.Decimal
	TotalUnitsBought  decimal.Decimal
	TotalCurrentValue decimal.Decimal
	TotalGainLoss     decimal.Decimal
	TotalReturn       *decimal.Decimal
	LastUpdated       time.Time // most recent price refresh among quoted assets
}

var hundred = decimal.NewFromInt(100)

// QuoteFor resolves the valuation quote for a purchase from a quote map keyed
// by asset ID. Purchases without a linked asset, or whose asset is absent
// from the map, valuate against the missing quote.
func QuoteFor(p *domain.Purchase, quotes map[uuid.UUID]valuation.Quote) valuation.Quote {
	if p.AssetID == nil {
		return valuation.MissingQuote
	}
	q, ok := quotes[*p.AssetID]
	if !ok {
		return valuation.MissingQuote
	}
	return q
}

// Aggregate sums the valuation outputs of a goal's purchases into GoalStats.
// Purchases with dangling asset references contribute zero current value but
// their cost basis still counts.
func Aggregate(goal *domain.Goal, purchases []*domain.Purchase, quotes map[uuid.UUID]valuation.Quote) GoalStats {
	invested := decimal.Zero
	value := decimal.Zero
	for _, p := range purchases {
		v := valuation.Valuate(p, QuoteFor(p, quotes))
		invested = invested.Add(v.TotalCost)
		value = value.Add(v.CurrentValue)
	}

	stats := GoalStats{
		TotalInvested:         invested,
		CurrentPortfolioValue: value,
		NetGainLoss:           value.Sub(invested),
	}
	if !invested.IsZero() {
		roi := stats.NetGainLoss.Div(invested).Mul(hundred)
		stats.PortfolioROI = &roi
	}
	if goal.TargetAmount.IsPositive() {
		stats.Progress = invested.Div(goal.TargetAmount).Mul(hundred)
	}
	return stats
}

// Service computes stats against live repository state.
type Service struct {
	GoalRepo     domain.GoalRepository
	PurchaseRepo domain.PurchaseRepository
	AssetRepo    domain.AssetRepository
}

// NewService creates a new aggregation Service instance
func NewService(goalRepo domain.GoalRepository, purchaseRepo domain.PurchaseRepository, assetRepo domain.AssetRepository) *Service {
	return &Service{
		GoalRepo:     goalRepo,
		PurchaseRepo: purchaseRepo,
		AssetRepo:    assetRepo,
	}
}

// GoalStats computes the roll-up for a single goal.
func (s *Service) GoalStats(ctx context.Context, goal *domain.Goal) (GoalStats, error) {
	purchases, err := s.PurchaseRepo.ListByGoal(ctx, goal.ID)
	if err != nil {
		return GoalStats{}, fmt.Errorf("failed to list purchases for goal %s: %w", goal.ID, err)
	}
	quotes, _, err := s.quotes(ctx, purchases)
	if err != nil {
		return GoalStats{}, err
	}
	return Aggregate(goal, purchases, quotes), nil
}

// PortfolioStats computes the overall roll-up across every goal the user owns.
func (s *Service) PortfolioStats(ctx context.Context, userID uuid.UUID) (PortfolioStats, error) {
	goals, err := s.GoalRepo.ListByUser(ctx, userID)
	if err != nil {
		return PortfolioStats{}, fmt.Errorf("failed to list goals: %w", err)
	}
	purchases, err := s.PurchaseRepo.ListByUser(ctx, userID)
	if err != nil {
		return PortfolioStats{}, fmt.Errorf("failed to list purchases: %w", err)
	}
	quotes, lastUpdated, err := s.quotes(ctx, purchases)
	if err != nil {
		return PortfolioStats{}, err
	}

	stats := PortfolioStats{LastUpdated: lastUpdated}
	for _, g := range goals {
		stats.TotalTarget = stats.TotalTarget.Add(g.TargetAmount)
	}
	for _, p := range purchases {
		v := valuation.Valuate(p, QuoteFor(p, quotes))
		stats.TotalInvested = stats.TotalInvested.Add(v.TotalCost)
		stats.TotalCurrentValue = stats.TotalCurrentValue.Add(v.CurrentValue)
		stats.TotalUnitsBought = stats.TotalUnitsBought.Add(p.Quantity)
	}
	stats.TotalGainLoss = stats.TotalCurrentValue.Sub(stats.TotalInvested)
	if !stats.TotalInvested.IsZero() {
		ret := stats.TotalGainLoss.Div(stats.TotalInvested).Mul(hundred)
		stats.TotalReturn = &ret
	}
	if stats.TotalTarget.IsPositive() {
		stats.OverallProgress = stats.TotalInvested.Div(stats.TotalTarget).Mul(hundred)
	}
	return stats, nil
}

// quotes resolves the live price for every asset referenced by the purchases.
// A purchase whose asset row no longer exists is tolerated: it simply gets no
// quote. The returned time is the most recent price refresh seen; it defaults
// to now when no asset was quoted.
func (s *Service) quotes(ctx context.Context, purchases []*domain.Purchase) (map[uuid.UUID]valuation.Quote, time.Time, error) {
	quotes := make(map[uuid.UUID]valuation.Quote)
	var lastUpdated time.Time
	for _, p := range purchases {
		if p.AssetID == nil {
			continue
		}
		if _, seen := quotes[*p.AssetID]; seen {
			continue
		}
		asset, err := s.AssetRepo.GetByID(ctx, *p.AssetID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, time.Time{}, fmt.Errorf("failed to quote asset %s: %w", *p.AssetID, err)
		}
		quotes[*p.AssetID] = valuation.Quote{Price: asset.CurrentPrice}
		if asset.LastUpdated.After(lastUpdated) {
			lastUpdated = asset.LastUpdated
		}
	}
	if lastUpdated.IsZero() {
		lastUpdated = time.Now().UTC()
	}
	return quotes, lastUpdated, nil
}
