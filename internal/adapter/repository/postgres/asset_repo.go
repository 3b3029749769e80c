package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Battlearmour2000/invest-tracker/internal/domain"
)

// assetRepository implements domain.AssetRepository
type assetRepository struct {
	db *DB
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *DB) domain.AssetRepository {
	return &assetRepository{db: db}
}

// Create creates a new asset
func (r *assetRepository) Create(ctx context.Context, asset *domain.Asset) error {
	query := `
		INSERT INTO assets (id, name, ticker, category, current_price, last_updated)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`

	_, err := r.db.ExecContext(ctx, query,
		asset.ID,
		asset.Name,
		asset.Ticker,
		string(asset.Category),
		asset.CurrentPrice.String(),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: ticker %s already registered", domain.ErrInvalidValue, asset.Ticker)
		}
		return fmt.Errorf("failed to create asset: %w", err)
	}

	return nil
}

// GetByID retrieves an asset by its ID
func (r *assetRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Asset, error) {
	query := `
		SELECT id, name, ticker, category, current_price, last_updated
		FROM assets
		WHERE id = $1
	`

	asset, err := scanAsset(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("asset %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return asset, nil
}

// List retrieves all registered assets ordered by ticker
func (r *assetRepository) List(ctx context.Context) ([]*domain.Asset, error) {
	query := `
		SELECT id, name, ticker, category, current_price, last_updated
		FROM assets
		ORDER BY ticker
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var assets []*domain.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assets: %w", err)
	}
	return assets, nil
}

// UpdatePrice atomically sets the price and refresh timestamp for one asset
// row. The single UPDATE ... RETURNING statement is the registry's
// read-modify-write: concurrent callers serialize on the row lock and no
// partial state is ever observable.
func (r *assetRepository) UpdatePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) (*domain.PriceQuote, error) {
	query := `
		UPDATE assets
		SET current_price = $2, last_updated = NOW()
		WHERE id = $1
		RETURNING current_price, last_updated
	`

	quote := domain.PriceQuote{AssetID: id}
	var priceStr string

	err := r.db.QueryRowContext(ctx, query, id, price.String()).Scan(&priceStr, &quote.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("asset %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update asset price: %w", err)
	}

	committed, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse current_price: %w", err)
	}
	quote.Price = committed

	return &quote, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*domain.Asset, error) {
	var asset domain.Asset
	var priceStr string

	err := row.Scan(
		&asset.ID,
		&asset.Name,
		&asset.Ticker,
		&asset.Category,
		&priceStr,
		&asset.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan asset: %w", err)
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse current_price: %w", err)
	}
	asset.CurrentPrice = price

	return &asset, nil
}
