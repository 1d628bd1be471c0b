// Package stock maintains per-location, per-variant balances. Balances are
// written only by the ledger inside its transaction; everything else reads.
package stock

import (
	"time"

	"mise/internal/core/id"
	"mise/internal/core/types"
)

// Balance is the current stock of one variant at one location, in the
// variant's base UoM. OnHand never goes negative; the repository enforces
// that with a row lock and a conditional decrement.
type Balance struct {
	ID                  id.ID `db:"id" json:"id"`
	InventoryLocationID id.ID `db:"inventory_location_id" json:"inventoryLocationId"`
	ItemVariantID       id.ID `db:"item_variant_id" json:"itemVariantId"`

	OnHand types.Quantity `db:"on_hand" json:"onHand"`

	// Reserved is stock promised to open orders, not yet shipped
	Reserved types.Quantity `db:"reserved" json:"reserved"`

	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Available returns the quantity free to draw from.
func (b *Balance) Available() types.Quantity {
	avail := b.OnHand - b.Reserved
	if avail < 0 {
		return 0
	}
	return avail
}
