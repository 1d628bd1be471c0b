// Package conversion resolves factors between units of measure.
//
// Conversions are stored as directed edges (from → to, factor). The resolver
// also answers the reverse direction by inverting the stored factor, so a
// single GR → KG edge with factor 0.001 serves both directions.
package conversion

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"mise/internal/core/apperror"
	"mise/internal/core/id"
	"mise/internal/core/types"
)

// Conversion is a stored directed edge between two units.
type Conversion struct {
	ID        id.ID `db:"id" json:"id"`
	FromUomID id.ID `db:"from_uom_id" json:"fromUomId"`
	ToUomID   id.ID `db:"to_uom_id" json:"toUomId"`

	// Factor converts a quantity in FromUomID into ToUomID: to = from * factor.
	// Stored at 6 decimal places, always positive.
	Factor decimal.Decimal `db:"factor" json:"factor"`

	// Tolerance is the relative deviation allowed when checking declared
	// against computed quantities (0.01 = 1%). Zero means exact.
	Tolerance decimal.Decimal `db:"tolerance" json:"tolerance"`

	IsActive  bool      `db:"is_active" json:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewConversion creates a new active edge.
func NewConversion(fromUomID, toUomID id.ID, factor decimal.Decimal) *Conversion {
	now := time.Now()
	return &Conversion{
		ID:        id.New(),
		FromUomID: fromUomID,
		ToUomID:   toUomID,
		Factor:    types.RoundFactor(factor),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks the edge before insert.
func (c *Conversion) Validate(ctx context.Context) error {
	if id.IsNil(c.FromUomID) || id.IsNil(c.ToUomID) {
		return apperror.NewValidation("both units are required").
			WithDetail("field", "fromUomId")
	}
	if c.FromUomID == c.ToUomID {
		return apperror.NewValidation("conversion cannot map a unit to itself").
			WithDetail("fromUomId", c.FromUomID.String())
	}
	if !c.Factor.IsPositive() {
		return apperror.NewValidation("factor must be positive").
			WithDetail("factor", c.Factor.String())
	}
	if c.Tolerance.IsNegative() {
		return apperror.NewValidation("tolerance cannot be negative").
			WithDetail("tolerance", c.Tolerance.String())
	}
	return nil
}

// Factor is a resolved conversion factor.
type Factor struct {
	// Value multiplies a source-unit quantity to yield a target-unit quantity
	Value decimal.Decimal

	// Derived is true when the factor came from inverting a reverse edge
	Derived bool
}
