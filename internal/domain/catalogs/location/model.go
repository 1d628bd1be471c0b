// Package location provides the branch → operating unit → inventory location
// hierarchy. Stock is held at the location level; the two parents exist for
// grouping and reporting.
package location

import (
	"context"

	"mise/internal/core/apperror"
	"mise/internal/core/entity"
	"mise/internal/core/id"
)

// Branch is a physical site (a restaurant, a store).
type Branch struct {
	entity.Catalog

	// Address is a free-form postal address
	Address string `db:"address" json:"address,omitempty"`
}

// NewBranch creates a new branch.
func NewBranch(code, name string) *Branch {
	return &Branch{Catalog: entity.NewCatalog(code, name)}
}

// OperatingUnit is a functional area inside a branch (kitchen, bar, storefront).
type OperatingUnit struct {
	entity.Catalog

	BranchID id.ID `db:"branch_id" json:"branchId"`
}

// NewOperatingUnit creates a new operating unit under a branch.
func NewOperatingUnit(code, name string, branchID id.ID) *OperatingUnit {
	return &OperatingUnit{
		Catalog:  entity.NewCatalog(code, name),
		BranchID: branchID,
	}
}

// Validate implements entity.Validatable.
func (o *OperatingUnit) Validate(ctx context.Context) error {
	if err := o.Catalog.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(o.BranchID) {
		return apperror.NewValidation("branch is required").
			WithDetail("field", "branchId")
	}
	return nil
}

// LocationKind distinguishes storage areas from selling areas.
type LocationKind string

const (
	KindStorage LocationKind = "storage"
	KindSales   LocationKind = "sales"
)

// InventoryLocation is where stock balances live. Every movement enters or
// leaves exactly one location.
type InventoryLocation struct {
	entity.Catalog

	OperatingUnitID id.ID        `db:"operating_unit_id" json:"operatingUnitId"`
	Kind            LocationKind `db:"kind" json:"kind"`
}

// NewInventoryLocation creates a new location under an operating unit.
func NewInventoryLocation(code, name string, operatingUnitID id.ID, kind LocationKind) *InventoryLocation {
	return &InventoryLocation{
		Catalog:         entity.NewCatalog(code, name),
		OperatingUnitID: operatingUnitID,
		Kind:            kind,
	}
}

// Validate implements entity.Validatable.
func (l *InventoryLocation) Validate(ctx context.Context) error {
	if err := l.Catalog.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(l.OperatingUnitID) {
		return apperror.NewValidation("operating unit is required").
			WithDetail("field", "operatingUnitId")
	}
	switch l.Kind {
	case KindStorage, KindSales:
	default:
		return apperror.NewValidation("invalid location kind").
			WithDetail("field", "kind").
			WithDetail("value", string(l.Kind))
	}
	return nil
}
