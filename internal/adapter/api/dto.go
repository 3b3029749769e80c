package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Battlearmour2000/invest-tracker/internal/domain"
	"github.com/Battlearmour2000/invest-tracker/internal/usecase/aggregation"
	"github.com/Battlearmour2000/invest-tracker/internal/usecase/valuation"
)

// Decimal fields are serialized as 2-decimal-place strings at this boundary;
// the engines underneath keep full precision.

type assetResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Ticker       string    `json:"ticker"`
	Category     string    `json:"category"`
	CurrentPrice string    `json:"current_price"`
	LastUpdated  time.Time `json:"last_updated"`
}

func toAssetResponse(a *domain.Asset) assetResponse {
	return assetResponse{
		ID:           a.ID,
		Name:         a.Name,
		Ticker:       a.Ticker,
		Category:     string(a.Category),
		CurrentPrice: a.CurrentPrice.StringFixed(2),
		LastUpdated:  a.LastUpdated,
	}
}

type goalResponse struct {
	ID                  uuid.UUID  `json:"id"`
	Name                string     `json:"name"`
	Category            string     `json:"category"`
	AssetID             *uuid.UUID `json:"asset_id,omitempty"`
	TargetAmount        string     `json:"target_amount"`
	YearsToInvest       int        `json:"years_to_invest"`
	MonthlyContribution string     `json:"monthly_contribution"`
	CreatedAt           time.Time  `json:"created_at"`

	TotalInvested         string  `json:"total_invested"`
	CurrentPortfolioValue string  `json:"current_portfolio_value"`
	NetGainLoss           string  `json:"net_gain_loss"`
	PortfolioROI          *string `json:"portfolio_roi"` // null when nothing invested
	Progress              string  `json:"progress"`
}

func toGoalResponse(g *domain.Goal, stats aggregation.GoalStats) goalResponse {
	return goalResponse{
		ID:                  g.ID,
		Name:                g.Name,
		Category:            string(g.Category),
		AssetID:             g.AssetID,
		TargetAmount:        g.TargetAmount.StringFixed(2),
		YearsToInvest:       g.YearsToInvest,
		MonthlyContribution: g.MonthlyContribution.StringFixed(2),
		CreatedAt:           g.CreatedAt,

		TotalInvested:         stats.TotalInvested.StringFixed(2),
		CurrentPortfolioValue: stats.CurrentPortfolioValue.StringFixed(2),
		NetGainLoss:           stats.NetGainLoss.StringFixed(2),
		PortfolioROI:          nullableFixed(stats.PortfolioROI),
		Progress:              stats.Progress.StringFixed(2),
	}
}

type purchaseResponse struct {
	ID            uuid.UUID  `json:"id"`
	GoalID        uuid.UUID  `json:"goal"`
	AssetID       *uuid.UUID `json:"asset_id,omitempty"`
	Date          string     `json:"date"`
	PurchasePrice string     `json:"purchase_price"`
	Quantity      string     `json:"quantity"`
	Notes         string     `json:"notes,omitempty"`

	TotalCost    string `json:"total_cost"`
	CurrentValue string `json:"current_value"`
	GainLoss     string `json:"gain_loss"`
	ROI          string `json:"roi"`
	IsProfitable bool   `json:"is_profitable"`
}

func toPurchaseResponse(p *domain.Purchase, v valuation.Valuation) purchaseResponse {
	return purchaseResponse{
		ID:            p.ID,
		GoalID:        p.GoalID,
		AssetID:       p.AssetID,
		Date:          p.Date.Format("2006-01-02"),
		PurchasePrice: p.PurchasePrice.StringFixed(2),
		Quantity:      p.Quantity.String(),
		Notes:         p.Notes,

		TotalCost:    v.TotalCost.StringFixed(2),
		CurrentValue: v.CurrentValue.StringFixed(2),
		GainLoss:     v.GainLoss.StringFixed(2),
		ROI:          v.ROI.StringFixed(2),
		IsProfitable: v.IsProfitable,
	}
}

type portfolioStatsResponse struct {
	TotalTarget       string    `json:"total_target"`
	TotalInvested     string    `json:"total_invested"`
	OverallProgress   string    `json:"overall_progress"`
	TotalUnitsBought  string    `json:"total_units_bought"`
	TotalCurrentValue string    `json:"total_current_value"`
	TotalGainLoss     string    `json:"total_gain_loss"`
	TotalReturn       *string   `json:"total_return"` // null when nothing invested
	LastUpdated       time.Time `json:"last_updated"`
}

func toPortfolioStatsResponse(stats aggregation.PortfolioStats) portfolioStatsResponse {
	return portfolioStatsResponse{
		TotalTarget:       stats.TotalTarget.StringFixed(2),
		TotalInvested:     stats.TotalInvested.StringFixed(2),
		OverallProgress:   stats.OverallProgress.StringFixed(2),
		TotalUnitsBought:  stats.TotalUnitsBought.String(),
		TotalCurrentValue: stats.TotalCurrentValue.StringFixed(2),
		TotalGainLoss:     stats.TotalGainLoss.StringFixed(2),
		TotalReturn:       nullableFixed(stats.TotalReturn),
		LastUpdated:       stats.LastUpdated,
	}
}

func nullableFixed(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.StringFixed(2)
	return &s
}
