package seeder

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Battlearmour2000/invest-tracker/internal/domain"
)

// Fixed UUIDs for the starter catalog so repeated startups are idempotent.
var (
	CatalogAAPL = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	CatalogVWCE = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	CatalogSXR8 = uuid.MustParse("00000000-0000-0000-0000-000000000003")
)

// CatalogSeeder ensures a starter set of well-known assets exists so new
// installations have something to link goals against. Seeded assets start
// with price zero, meaning no price has been published yet.
type CatalogSeeder struct {
	repo domain.AssetRepository
}

// NewCatalogSeeder creates a new CatalogSeeder instance
func NewCatalogSeeder(repo domain.AssetRepository) *CatalogSeeder {
	return &CatalogSeeder{
		repo: repo,
	}
}

// Seed creates every starter asset that does not already exist. Assets an
// operator has created or repriced are never touched.
func (s *CatalogSeeder) Seed(ctx context.Context) error {
	starters := []*domain.Asset{
		{
			ID:       CatalogAAPL,
			Name:     "Apple Inc.",
			Ticker:   "AAPL",
			Category: domain.AssetCategoryStock,
		},
		{
			ID:       CatalogVWCE,
			Name:     "Vanguard FTSE All-World UCITS ETF",
			Ticker:   "VWCE",
			Category: domain.AssetCategoryFund,
		},
		{
			ID:       CatalogSXR8,
			Name:     "iShares Core S&P 500 UCITS ETF",
			Ticker:   "SXR8",
			Category: domain.AssetCategoryFund,
		},
	}

	for _, starter := range starters {
		_, err := s.repo.GetByID(ctx, starter.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		starter.CurrentPrice = decimal.Zero
		if err := starter.Validate(); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, starter); err != nil {
			return err
		}
	}

	return nil
}
