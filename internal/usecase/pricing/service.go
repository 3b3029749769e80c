// Package pricing implements the asset registry: the authoritative current
// price per tradable asset, mutated only by data admins. Committed price
// changes are handed to a broadcaster for best-effort fan-out; delivery never
// affects the stored state or the caller's response.
package pricing

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Battlearmour2000/invest-tracker/internal/domain"
)

// Broadcaster receives committed price changes for fan-out to subscribers.
// Implementations must not block the caller; delivery is best-effort.
type Broadcaster interface {
	Broadcast(quote domain.PriceQuote)
}

// CreateAssetInput represents the input for registering a new asset
type CreateAssetInput struct {
	Name         string
	Ticker       string
	Category     domain.AssetCategory
	CurrentPrice decimal.Decimal
}

// Service handles asset registry operations
type Service struct {
	AssetRepo   domain.AssetRepository
	Broadcaster Broadcaster
	Log         *logrus.Logger
}

// NewService creates a new pricing Service instance
func NewService(assetRepo domain.AssetRepository, broadcaster Broadcaster, log *logrus.Logger) *Service {
	return &Service{
		AssetRepo:   assetRepo,
		Broadcaster: broadcaster,
		Log:         log,
	}
}

// CreateAsset registers a new tradable asset. Only data admins may create
// assets; tickers are normalized to upper case and must be unique.
func (s *Service) CreateAsset(ctx context.Context, session domain.Session, input CreateAssetInput) (*domain.Asset, error) {
	if !session.IsDataAdmin {
		return nil, fmt.Errorf("%w: asset management requires the data-admin role", domain.ErrPermissionDenied)
	}

	asset := &domain.Asset{
		ID:           uuid.New(),
		Name:         input.Name,
		Ticker:       strings.ToUpper(strings.TrimSpace(input.Ticker)),
		Category:     input.Category,
		CurrentPrice: input.CurrentPrice,
	}
	if err := asset.Validate(); err != nil {
		return nil, err
	}

	if err := s.AssetRepo.Create(ctx, asset); err != nil {
		return nil, err
	}

	s.Log.WithFields(logrus.Fields{"asset_id": asset.ID, "ticker": asset.Ticker}).Info("asset registered")
	return asset, nil
}

// GetAsset retrieves a single asset by ID.
func (s *Service) GetAsset(ctx context.Context, id uuid.UUID) (*domain.Asset, error) {
	return s.AssetRepo.GetByID(ctx, id)
}

// ListAssets retrieves all registered assets.
func (s *Service) ListAssets(ctx context.Context) ([]*domain.Asset, error) {
	return s.AssetRepo.List(ctx)
}

// GetPrice returns the current live price for an asset.
func (s *Service) GetPrice(ctx context.Context, id uuid.UUID) (decimal.Decimal, error) {
	asset, err := s.AssetRepo.GetByID(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return asset.CurrentPrice, nil
}

// SetPrice updates an asset's live price on behalf of the acting session.
// The write is a single atomic update; on success the committed quote is
// handed to the broadcaster. Broadcast delivery is fire-and-forget: it can
// never fail the caller or roll the write back.
func (s *Service) SetPrice(ctx context.Context, session domain.Session, assetID uuid.UUID, newPrice decimal.Decimal) (*domain.PriceQuote, error) {
	if !session.IsDataAdmin {
		return nil, fmt.Errorf("%w: price updates require the data-admin role", domain.ErrPermissionDenied)
	}
	if newPrice.IsNegative() {
		return nil, fmt.Errorf("%w: price cannot be negative", domain.ErrInvalidValue)
	}

	quote, err := s.AssetRepo.UpdatePrice(ctx, assetID, newPrice)
	if err != nil {
		return nil, err
	}

	s.Log.WithFields(logrus.Fields{
		"asset_id":  quote.AssetID,
		"new_price": quote.Price.String(),
		"actor":     session.Username,
	}).Info("asset price updated")

	if s.Broadcaster != nil {
		s.Broadcaster.Broadcast(*quote)
	}
	return quote, nil
}
