package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Battlearmour2000/invest-tracker/internal/domain"
)

// purchaseRepository implements domain.PurchaseRepository
type purchaseRepository struct {
	db *DB
}

// NewPurchaseRepository creates a new purchase repository
func NewPurchaseRepository(db *DB) domain.PurchaseRepository {
	return &purchaseRepository{db: db}
}

// Create creates a new purchase
func (r *purchaseRepository) Create(ctx context.Context, purchase *domain.Purchase) error {
	query := `
		INSERT INTO purchases (id, goal_id, asset_id, date, purchase_price, quantity, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		purchase.ID,
		purchase.GoalID,
		nullableUUID(purchase.AssetID),
		purchase.Date,
		purchase.PurchasePrice.String(),
		purchase.Quantity.String(),
		purchase.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to create purchase: %w", err)
	}

	return nil
}

// GetByID retrieves a purchase by its ID
func (r *purchaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Purchase, error) {
	query := `
		SELECT id, goal_id, asset_id, date, purchase_price, quantity, notes
		FROM purchases
		WHERE id = $1
	`

	purchase, err := scanPurchase(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("purchase %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return purchase, nil
}

// ListByGoal retrieves all purchases under a goal, newest first
func (r *purchaseRepository) ListByGoal(ctx context.Context, goalID uuid.UUID) ([]*domain.Purchase, error) {
	query := `
		SELECT id, goal_id, asset_id, date, purchase_price, quantity, notes
		FROM purchases
		WHERE goal_id = $1
		ORDER BY date DESC
	`
	return r.list(ctx, query, goalID)
}

// ListByUser retrieves all purchases across a user's goals, newest first
func (r *purchaseRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Purchase, error) {
	query := `
		SELECT p.id, p.goal_id, p.asset_id, p.date, p.purchase_price, p.quantity, p.notes
		FROM purchases p
		JOIN goals g ON g.id = p.goal_id
		WHERE g.user_id = $1
		ORDER BY p.date DESC
	`
	return r.list(ctx, query, userID)
}

// Delete removes a purchase
func (r *purchaseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM purchases WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete purchase: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete purchase: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("purchase %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *purchaseRepository) list(ctx context.Context, query string, arg interface{}) ([]*domain.Purchase, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	defer rows.Close()

	var purchases []*domain.Purchase
	for rows.Next() {
		purchase, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		purchases = append(purchases, purchase)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate purchases: %w", err)
	}
	return purchases, nil
}

func scanPurchase(row rowScanner) (*domain.Purchase, error) {
	var purchase domain.Purchase
	var assetID sql.NullString
	var priceStr, quantityStr string

	err := row.Scan(
		&purchase.ID,
		&purchase.GoalID,
		&assetID,
		&purchase.Date,
		&priceStr,
		&quantityStr,
		&purchase.Notes,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan purchase: %w", err)
	}

	if assetID.Valid {
		parsed, err := uuid.Parse(assetID.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse asset_id: %w", err)
		}
		purchase.AssetID = &parsed
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse purchase_price: %w", err)
	}
	purchase.PurchasePrice = price

	quantity, err := decimal.NewFromString(quantityStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse quantity: %w", err)
	}
	purchase.Quantity = quantity

	return &purchase, nil
}
