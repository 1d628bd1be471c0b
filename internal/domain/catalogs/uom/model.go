// Package uom provides the unit-of-measure catalog.
package uom

import (
	"context"

	"mise/internal/core/apperror"
	"mise/internal/core/entity"
)

// UnitOfMeasure is a named unit with a display precision and a flag for
// whether fractional quantities are allowed (pieces are not divisible,
// kilograms are). Units are immutable once a conversion or a variant's
// base UoM references them; that guard lives in the catalog maintenance
// layer, not here.
type UnitOfMeasure struct {
	entity.Catalog

	// Symbol is the short symbol (e.g., "kg", "g", "pcs")
	Symbol string `db:"symbol" json:"symbol"`

	// Precision is the number of fractional digits shown for quantities in this unit
	Precision int32 `db:"precision" json:"precision"`

	// AllowFractional is false for units counted in whole numbers
	AllowFractional bool `db:"allow_fractional" json:"allowFractional"`
}

// NewUnitOfMeasure creates a new unit with required fields.
func NewUnitOfMeasure(code, name, symbol string) *UnitOfMeasure {
	return &UnitOfMeasure{
		Catalog:         entity.NewCatalog(code, name),
		Symbol:          symbol,
		Precision:       4,
		AllowFractional: true,
	}
}

// Validate implements entity.Validatable.
func (u *UnitOfMeasure) Validate(ctx context.Context) error {
	if err := u.Catalog.Validate(ctx); err != nil {
		return err
	}

	if u.Symbol == "" {
		return apperror.NewValidation("symbol is required").
			WithDetail("field", "symbol")
	}

	if u.Precision < 0 || u.Precision > 4 {
		return apperror.NewValidation("precision must be between 0 and 4").
			WithDetail("field", "precision")
	}

	return nil
}
