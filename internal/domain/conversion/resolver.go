package conversion

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"mise/internal/core/apperror"
	"mise/internal/core/id"
	"mise/internal/core/types"
)

var one = decimal.NewFromInt(1)

// Resolver answers "how many target units is one source unit" using the
// stored edges.
type Resolver struct {
	edges EdgeLookup
}

// NewResolver creates a resolver over an edge lookup.
func NewResolver(edges EdgeLookup) *Resolver {
	return &Resolver{edges: edges}
}

// Resolve returns the factor converting quantities from fromUomID into
// toUomID. Resolution order:
//
//  1. identity: same unit on both sides, factor 1
//  2. direct: an active from → to edge, its stored factor
//  3. inverse: an active to → from edge, 1 / factor at 6 decimal places
//
// Multi-hop chains are not resolved. When no edge answers, the error carries
// apperror.CodeConversionUnavailable.
func (r *Resolver) Resolve(ctx context.Context, fromUomID, toUomID id.ID) (Factor, error) {
	if fromUomID == toUomID {
		return Factor{Value: one}, nil
	}

	direct, err := r.edges.FindActive(ctx, fromUomID, toUomID)
	if err != nil {
		return Factor{}, err
	}
	if direct != nil {
		if !direct.Factor.IsPositive() {
			return Factor{}, apperror.NewInternal(fmt.Errorf("conversion %s has non-positive factor", direct.ID)).
				WithDetail("conversionId", direct.ID.String())
		}
		return Factor{Value: direct.Factor}, nil
	}

	reverse, err := r.edges.FindActive(ctx, toUomID, fromUomID)
	if err != nil {
		return Factor{}, err
	}
	if reverse != nil {
		if !reverse.Factor.IsPositive() {
			return Factor{}, apperror.NewInternal(fmt.Errorf("conversion %s has non-positive factor", reverse.ID)).
				WithDetail("conversionId", reverse.ID.String())
		}
		return Factor{
			Value:   one.DivRound(reverse.Factor, types.FactorScale),
			Derived: true,
		}, nil
	}

	return Factor{}, apperror.NewConversionUnavailable(fromUomID.String(), toUomID.String())
}

// Convert resolves the factor and applies it to a quantity, rounding the
// result to the quantity scale.
func (r *Resolver) Convert(ctx context.Context, qty types.Quantity, fromUomID, toUomID id.ID) (types.Quantity, Factor, error) {
	f, err := r.Resolve(ctx, fromUomID, toUomID)
	if err != nil {
		return 0, Factor{}, err
	}
	converted := types.NewQuantityFromDecimal(qty.Decimal().Mul(f.Value))
	return converted, f, nil
}
