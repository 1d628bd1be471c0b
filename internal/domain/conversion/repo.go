package conversion

import (
	"context"

	"mise/internal/core/id"
)

// EdgeLookup is the read side the resolver needs. FindActive returns the
// active edge from → to, or nil when none exists. Inactive edges are never
// returned.
type EdgeLookup interface {
	FindActive(ctx context.Context, fromUomID, toUomID id.ID) (*Conversion, error)
}

// Repository extends EdgeLookup with maintenance operations.
type Repository interface {
	EdgeLookup

	// List returns all active edges.
	List(ctx context.Context) ([]Conversion, error)

	// Create inserts a new edge. Returns apperror.NewDuplicate when an
	// active edge for the same unit pair already exists.
	Create(ctx context.Context, c *Conversion) error

	// Deactivate soft-deletes an edge, making it invisible to the resolver.
	Deactivate(ctx context.Context, conversionID id.ID) error
}
