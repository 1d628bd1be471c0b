package dto

import (
	"time"

	"mise/internal/domain/stock"
)

// BalanceResponse is the current stock of one variant at one location.
type BalanceResponse struct {
	InventoryLocationID string    `json:"inventoryLocationId"`
	ItemVariantID       string    `json:"itemVariantId"`
	OnHand              string    `json:"onHand"`
	Reserved            string    `json:"reserved"`
	Available           string    `json:"available"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// FromBalance maps a domain balance to its response.
func FromBalance(b *stock.Balance) BalanceResponse {
	return BalanceResponse{
		InventoryLocationID: b.InventoryLocationID.String(),
		ItemVariantID:       b.ItemVariantID.String(),
		OnHand:              b.OnHand.String(),
		Reserved:            b.Reserved.String(),
		Available:           b.Available().String(),
		UpdatedAt:           b.UpdatedAt,
	}
}
