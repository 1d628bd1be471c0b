package variant

import (
	"context"

	"mise/internal/core/id"
	"mise/internal/core/types"
)

// Repository defines the interface for item and variant persistence.
type Repository interface {
	// GetByID retrieves an active variant. Returns apperror.NewNotFound
	// when the variant does not exist or is inactive.
	GetByID(ctx context.Context, variantID id.ID) (*ItemVariant, error)

	// GetForUpdate retrieves a variant with a row lock. Must be called
	// inside a transaction; the lock is held until commit.
	GetForUpdate(ctx context.Context, variantID id.ID) (*ItemVariant, error)

	// UpdateCosts persists the costing engine's output for a variant.
	UpdateCosts(ctx context.Context, variantID id.ID, lastUnitCost, avgUnitCost types.Money) error

	// List returns active variants ordered by code.
	List(ctx context.Context) ([]ItemVariant, error)

	// Create inserts a new variant.
	Create(ctx context.Context, v *ItemVariant) error

	// CreateItem inserts a new item.
	CreateItem(ctx context.Context, it *Item) error
}
