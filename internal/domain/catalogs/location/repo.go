package location

import (
	"context"

	"mise/internal/core/id"
)

// Repository defines the interface for the location hierarchy.
type Repository interface {
	// GetByID retrieves an active location. Returns apperror.NewNotFound
	// when the location does not exist or is inactive.
	GetByID(ctx context.Context, locationID id.ID) (*InventoryLocation, error)

	// ListByOperatingUnit returns active locations of one operating unit.
	ListByOperatingUnit(ctx context.Context, operatingUnitID id.ID) ([]InventoryLocation, error)

	// Create inserts a new location (seeder and catalog maintenance only).
	Create(ctx context.Context, l *InventoryLocation) error

	// CreateBranch inserts a new branch.
	CreateBranch(ctx context.Context, b *Branch) error

	// CreateOperatingUnit inserts a new operating unit.
	CreateOperatingUnit(ctx context.Context, o *OperatingUnit) error
}
