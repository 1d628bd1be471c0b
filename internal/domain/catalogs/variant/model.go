// Package variant provides the item and item-variant catalogs.
// The variant is the stockable unit: it owns a base UoM and the two cost
// columns the costing engine maintains.
package variant

import (
	"context"

	"github.com/shopspring/decimal"

	"mise/internal/core/apperror"
	"mise/internal/core/entity"
	"mise/internal/core/id"
	"mise/internal/core/types"
)

// Item groups variants of one sellable product (e.g., "Flour" with
// variants "Flour 00" and "Flour whole-grain").
type Item struct {
	entity.Catalog

	// Category is a free-form grouping label
	Category string `db:"category" json:"category,omitempty"`
}

// NewItem creates a new item.
func NewItem(code, name string) *Item {
	return &Item{Catalog: entity.NewCatalog(code, name)}
}

// ItemVariant is a stockable unit of an Item.
//
// LastUnitCost and AvgUnitCost are expressed per base UoM unit and are
// written only by the costing engine on priced inbound movements; outbound
// movements read AvgUnitCost and never recompute it.
type ItemVariant struct {
	entity.Catalog

	ItemID id.ID  `db:"item_id" json:"itemId"`
	SKU    string `db:"sku" json:"sku"`

	// BaseUomID is the unit all stock quantities and costs are stored in
	BaseUomID id.ID `db:"base_uom_id" json:"baseUomId"`

	LastUnitCost types.Money `db:"last_unit_cost" json:"lastUnitCost"`
	AvgUnitCost  types.Money `db:"avg_unit_cost" json:"avgUnitCost"`

	// Replenishment thresholds, in base UoM
	MinStock types.Quantity `db:"min_stock" json:"minStock"`
	MaxStock types.Quantity `db:"max_stock" json:"maxStock"`
}

// NewItemVariant creates a new variant of an item.
func NewItemVariant(code, name, sku string, itemID, baseUomID id.ID) *ItemVariant {
	return &ItemVariant{
		Catalog:      entity.NewCatalog(code, name),
		ItemID:       itemID,
		SKU:          sku,
		BaseUomID:    baseUomID,
		LastUnitCost: decimal.Zero,
		AvgUnitCost:  decimal.Zero,
	}
}

// Validate implements entity.Validatable.
func (v *ItemVariant) Validate(ctx context.Context) error {
	if err := v.Catalog.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(v.ItemID) {
		return apperror.NewValidation("item is required").
			WithDetail("field", "itemId")
	}
	if id.IsNil(v.BaseUomID) {
		return apperror.NewValidation("base unit of measure is required").
			WithDetail("field", "baseUomId")
	}
	if v.LastUnitCost.IsNegative() || v.AvgUnitCost.IsNegative() {
		return apperror.NewValidation("unit costs cannot be negative").
			WithDetail("field", "avgUnitCost")
	}
	if v.MinStock.IsNegative() {
		return apperror.NewValidation("min stock cannot be negative").
			WithDetail("field", "minStock")
	}
	return nil
}
