// Package ledger implements the stock movement ledger: immutable movement
// records plus the transactional operations that post them and mutate stock
// balances.
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"mise/internal/core/apperror"
	"mise/internal/core/id"
	"mise/internal/core/types"
	"mise/internal/domain/catalogs/location"
	"mise/internal/domain/catalogs/variant"
)

// Reason classifies a movement.
type Reason string

const (
	ReasonTransfer       Reason = "TRANSFER"
	ReasonReturn         Reason = "RETURN"
	ReasonSale           Reason = "SALE"
	ReasonAdjustment     Reason = "ADJUSTMENT"
	ReasonConsumption    Reason = "CONSUMPTION"
	ReasonOpeningBalance Reason = "OPENING_BALANCE"
	ReasonCountVariance  Reason = "COUNT_VARIANCE"
)

// Valid reports whether the reason is one of the known values.
func (r Reason) Valid() bool {
	switch r {
	case ReasonTransfer, ReasonReturn, ReasonSale, ReasonAdjustment,
		ReasonConsumption, ReasonOpeningBalance, ReasonCountVariance:
		return true
	}
	return false
}

// Status is the movement lifecycle state. Only POSTED is ever produced here;
// DRAFT and REVERSED exist for workflows layered on top of the ledger.
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusPosted   Status = "POSTED"
	StatusReversed Status = "REVERSED"
)

// stockOutReasons is the set accepted by RegisterStockOut.
var stockOutReasons = []string{string(ReasonSale), string(ReasonConsumption)}

// Meta preserves the pre-conversion view of a movement for audit: the
// quantity, unit and cost exactly as the caller supplied them, plus the
// factor that was applied.
type Meta struct {
	OriginalQty      types.Quantity  `json:"original_qty"`
	OriginalUomID    id.ID           `json:"original_uom_id"`
	ConversionFactor decimal.Decimal `json:"conversion_factor"`
	OriginalUnitCost *types.Money    `json:"original_unit_cost,omitempty"`
	OriginalPrice    *types.Money    `json:"original_price,omitempty"`
}

// RelatedRef links a movement to another record as an opaque (kind, id) tag.
type RelatedRef struct {
	Kind string `json:"kind"`
	ID   id.ID  `json:"id"`
}

// Movement is an immutable ledger header. Exactly one of FromLocationID and
// ToLocationID is set: entries carry only a destination, exits only a source.
// Qty is always in the variant's base UoM.
type Movement struct {
	ID     id.ID  `db:"id" json:"id"`
	Number string `db:"number" json:"number"`

	FromLocationID *id.ID `db:"from_location_id" json:"fromLocationId,omitempty"`
	ToLocationID   *id.ID `db:"to_location_id" json:"toLocationId,omitempty"`
	ItemVariantID  id.ID  `db:"item_variant_id" json:"itemVariantId"`

	Reason Reason `db:"reason" json:"reason"`
	Status Status `db:"status" json:"status"`

	Qty types.Quantity `db:"qty" json:"qty"`

	Meta    Meta        `db:"meta" json:"meta"`
	Related *RelatedRef `db:"related" json:"related,omitempty"`

	Reference string `db:"reference" json:"reference,omitempty"`
	Notes     string `db:"notes" json:"notes,omitempty"`

	CreatedBy *id.ID    `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`

	// Loaded relations, not persisted on the header
	Lines    []MovementLine              `db:"-" json:"lines,omitempty"`
	Location *location.InventoryLocation `db:"-" json:"location,omitempty"`
	Variant  *variant.ItemVariant        `db:"-" json:"variant,omitempty"`
}

// Validate checks the header invariants before insert.
func (m *Movement) Validate(ctx context.Context) error {
	hasFrom := m.FromLocationID != nil && !id.IsNil(*m.FromLocationID)
	hasTo := m.ToLocationID != nil && !id.IsNil(*m.ToLocationID)
	if hasFrom == hasTo {
		return apperror.NewValidation("movement must have exactly one of source and destination").
			WithDetail("field", "fromLocationId")
	}
	if id.IsNil(m.ItemVariantID) {
		return apperror.NewValidation("item variant is required").
			WithDetail("field", "itemVariantId")
	}
	if !m.Reason.Valid() {
		return apperror.NewValidation("unknown movement reason").
			WithDetail("reason", string(m.Reason))
	}
	if !m.Qty.IsPositive() {
		return apperror.NewValidation("movement quantity must be positive").
			WithDetail("qty", m.Qty.String())
	}
	if len(m.Lines) == 0 {
		return apperror.NewValidation("movement must carry at least one line")
	}
	return nil
}

// IsInbound reports whether the movement adds stock to a location.
func (m *Movement) IsInbound() bool {
	return m.ToLocationID != nil && !id.IsNil(*m.ToLocationID)
}

// MovementLine is one priced detail row of a movement. Qty is in the
// transaction UoM, BaseQty in the variant's base UoM. The sale columns are
// set only on priced SALE lines.
type MovementLine struct {
	ID         id.ID `db:"id" json:"id"`
	MovementID id.ID `db:"movement_id" json:"movementId"`
	LineNo     int32 `db:"line_no" json:"lineNo"`

	UomID id.ID `db:"uom_id" json:"uomId"`

	Qty              types.Quantity  `db:"qty" json:"qty"`
	BaseQty          types.Quantity  `db:"base_qty" json:"baseQty"`
	ConversionFactor decimal.Decimal `db:"conversion_factor" json:"conversionFactor"`

	UnitCost  *types.Money `db:"unit_cost" json:"unitCost,omitempty"`
	LineTotal *types.Money `db:"line_total" json:"lineTotal,omitempty"`

	SalePrice    *types.Money `db:"sale_price" json:"salePrice,omitempty"`
	SaleTotal    *types.Money `db:"sale_total" json:"saleTotal,omitempty"`
	ProfitMargin *types.Money `db:"profit_margin" json:"profitMargin,omitempty"`
	ProfitTotal  *types.Money `db:"profit_total" json:"profitTotal,omitempty"`
}
