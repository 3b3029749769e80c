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

// goalRepository implements domain.GoalRepository
type goalRepository struct {
	db *DB
}

// NewGoalRepository creates a new goal repository
func NewGoalRepository(db *DB) domain.GoalRepository {
	return &goalRepository{db: db}
}

// Create creates a new goal
func (r *goalRepository) Create(ctx context.Context, goal *domain.Goal) error {
	query := `
		INSERT INTO goals (id, user_id, name, category, asset_id, target_amount, years_to_invest, monthly_contribution, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		goal.ID,
		goal.UserID,
		goal.Name,
		string(goal.Category),
		nullableUUID(goal.AssetID),
		goal.TargetAmount.String(),
		goal.YearsToInvest,
		goal.MonthlyContribution.String(),
		goal.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create goal: %w", err)
	}

	return nil
}

// GetByID retrieves a goal by its ID
func (r *goalRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Goal, error) {
	query := `
		SELECT id, user_id, name, category, asset_id, target_amount, years_to_invest, monthly_contribution, created_at
		FROM goals
		WHERE id = $1
	`

	goal, err := scanGoal(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("goal %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return goal, nil
}

// ListByUser retrieves all goals owned by a user, newest first
func (r *goalRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Goal, error) {
	query := `
		SELECT id, user_id, name, category, asset_id, target_amount, years_to_invest, monthly_contribution, created_at
		FROM goals
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()

	var goals []*domain.Goal
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, goal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate goals: %w", err)
	}
	return goals, nil
}

// Update persists changes to an existing goal
func (r *goalRepository) Update(ctx context.Context, goal *domain.Goal) error {
	query := `
		UPDATE goals
		SET name = $2, category = $3, asset_id = $4, target_amount = $5, years_to_invest = $6, monthly_contribution = $7
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		goal.ID,
		goal.Name,
		string(goal.Category),
		nullableUUID(goal.AssetID),
		goal.TargetAmount.String(),
		goal.YearsToInvest,
		goal.MonthlyContribution.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("goal %s: %w", goal.ID, domain.ErrNotFound)
	}
	return nil
}

// Delete removes a goal; the purchases FK cascades
func (r *goalRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM goals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("goal %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanGoal(row rowScanner) (*domain.Goal, error) {
	var goal domain.Goal
	var assetID sql.NullString
	var targetStr, contributionStr string

	err := row.Scan(
		&goal.ID,
		&goal.UserID,
		&goal.Name,
		&goal.Category,
		&assetID,
		&targetStr,
		&goal.YearsToInvest,
		&contributionStr,
		&goal.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan goal: %w", err)
	}

	if assetID.Valid {
		parsed, err := uuid.Parse(assetID.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse asset_id: %w", err)
		}
		goal.AssetID = &parsed
	}

	target, err := decimal.NewFromString(targetStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse target_amount: %w", err)
	}
	goal.TargetAmount = target

	contribution, err := decimal.NewFromString(contributionStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse monthly_contribution: %w", err)
	}
	goal.MonthlyContribution = contribution

	return &goal, nil
}

func nullableUUID(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return *id
}
