package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserRepository defines the interface for user persistence operations
type UserRepository interface {
	// Create creates a new user; duplicate username or email yields ErrInvalidValue
	Create(ctx context.Context, user *User) error

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByID retrieves a user by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
}

// AssetRepository defines the interface for asset persistence operations.
// It backs the Asset Registry, the single source of truth for live prices.
type AssetRepository interface {
	// Create creates a new asset; a duplicate ticker yields ErrInvalidValue
	Create(ctx context.Context, asset *Asset) error

	// GetByID retrieves an asset by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Asset, error)

	// List retrieves all registered assets ordered by ticker
	List(ctx context.Context) ([]*Asset, error)

	// UpdatePrice atomically sets the price and refresh timestamp for one
	// asset row and returns the committed state. Unknown IDs yield
	// ErrNotFound. Concurrent updates on the same asset never interleave
	// partial state.
	UpdatePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) (*PriceQuote, error)
}

// GoalRepository defines the interface for goal persistence operations
type GoalRepository interface {
	// Create creates a new goal
	Create(ctx context.Context, goal *Goal) error

	// GetByID retrieves a goal by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Goal, error)

	// ListByUser retrieves all goals owned by a user, newest first
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Goal, error)

	// Update persists changes to an existing goal
	Update(ctx context.Context, goal *Goal) error

	// Delete removes a goal; its purchases are removed with it
	Delete(ctx context.Context, id uuid.UUID) error
}

// PurchaseRepository defines the interface for purchase persistence operations
type PurchaseRepository interface {
	// Create creates a new purchase
	Create(ctx context.Context, purchase *Purchase) error

	// GetByID retrieves a purchase by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Purchase, error)

	// ListByGoal retrieves all purchases under a goal, newest first
	ListByGoal(ctx context.Context, goalID uuid.UUID) ([]*Purchase, error)

	// ListByUser retrieves all purchases across every goal owned by a user,
	// newest first
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Purchase, error)

	// Delete removes a purchase
	Delete(ctx context.Context, id uuid.UUID) error
}
