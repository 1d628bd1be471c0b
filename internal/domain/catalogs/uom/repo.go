package uom

import (
	"context"

	"mise/internal/core/id"
)

// Repository defines the interface for UnitOfMeasure persistence.
// The ledger core only resolves units; creation happens in the catalog
// maintenance layer and in the seeder.
type Repository interface {
	// GetByID retrieves an active unit. Returns apperror.NewNotFound when
	// the unit does not exist or is inactive.
	GetByID(ctx context.Context, uomID id.ID) (*UnitOfMeasure, error)

	// FindBySymbol retrieves an active unit by symbol (unique).
	FindBySymbol(ctx context.Context, symbol string) (*UnitOfMeasure, error)

	// List returns all active units ordered by code.
	List(ctx context.Context) ([]UnitOfMeasure, error)

	// Create inserts a new unit (seeder and catalog maintenance only).
	Create(ctx context.Context, u *UnitOfMeasure) error
}
