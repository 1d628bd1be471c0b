package stock

import (
	"context"

	"mise/internal/core/id"
	"mise/internal/core/types"
)

// Repository defines balance persistence. Get and GetForUpdate report
// absence through the found flag instead of an error: the ledger needs to
// tell "no row at all" apart from "row with too little stock".
type Repository interface {
	// Get reads a balance without locking.
	Get(ctx context.Context, locationID, variantID id.ID) (*Balance, bool, error)

	// GetForUpdate reads a balance with SELECT ... FOR UPDATE. Must run
	// inside a transaction.
	GetForUpdate(ctx context.Context, locationID, variantID id.ID) (*Balance, bool, error)

	// AddOnHand increments the balance, creating the row when absent, and
	// returns the post-increment on-hand quantity.
	AddOnHand(ctx context.Context, locationID, variantID id.ID, qty types.Quantity) (types.Quantity, error)

	// SubtractOnHand decrements a locked balance. The caller must have
	// verified sufficiency under GetForUpdate in the same transaction.
	SubtractOnHand(ctx context.Context, locationID, variantID id.ID, qty types.Quantity) error

	// ListByLocation returns all balances at one location.
	ListByLocation(ctx context.Context, locationID id.ID) ([]Balance, error)

	// ListByVariant returns the balances of one variant across locations.
	ListByVariant(ctx context.Context, variantID id.ID) ([]Balance, error)
}
