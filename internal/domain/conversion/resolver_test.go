package conversion

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mise/internal/core/apperror"
	"mise/internal/core/id"
	"mise/internal/core/types"
)

type fakeEdges struct {
	edges []*Conversion
}

func (f *fakeEdges) FindActive(_ context.Context, fromUomID, toUomID id.ID) (*Conversion, error) {
	for _, e := range f.edges {
		if e.IsActive && e.FromUomID == fromUomID && e.ToUomID == toUomID {
			return e, nil
		}
	}
	return nil, nil
}

func TestResolve_Identity(t *testing.T) {
	kg := id.New()
	r := NewResolver(&fakeEdges{})

	f, err := r.Resolve(context.Background(), kg, kg)
	require.NoError(t, err)
	assert.True(t, f.Value.Equal(decimal.NewFromInt(1)))
	assert.False(t, f.Derived)
}

func TestResolve_DirectEdge(t *testing.T) {
	gr, kg := id.New(), id.New()
	edges := &fakeEdges{edges: []*Conversion{
		NewConversion(gr, kg, decimal.RequireFromString("0.001")),
	}}
	r := NewResolver(edges)

	f, err := r.Resolve(context.Background(), gr, kg)
	require.NoError(t, err)
	assert.Equal(t, "0.001", f.Value.String())
	assert.False(t, f.Derived)
}

func TestResolve_InverseEdge(t *testing.T) {
	gr, kg := id.New(), id.New()
	edges := &fakeEdges{edges: []*Conversion{
		NewConversion(gr, kg, decimal.RequireFromString("0.001")),
	}}
	r := NewResolver(edges)

	f, err := r.Resolve(context.Background(), kg, gr)
	require.NoError(t, err)
	assert.Equal(t, "1000", f.Value.String())
	assert.True(t, f.Derived)
}

func TestResolve_InverseRounding(t *testing.T) {
	a, b := id.New(), id.New()
	edges := &fakeEdges{edges: []*Conversion{
		NewConversion(a, b, decimal.RequireFromString("3")),
	}}
	r := NewResolver(edges)

	f, err := r.Resolve(context.Background(), b, a)
	require.NoError(t, err)
	assert.Equal(t, "0.333333", f.Value.String())
	assert.True(t, f.Derived)
}

func TestResolve_InactiveEdgeInvisible(t *testing.T) {
	gr, kg := id.New(), id.New()
	edge := NewConversion(gr, kg, decimal.RequireFromString("0.001"))
	edge.IsActive = false
	r := NewResolver(&fakeEdges{edges: []*Conversion{edge}})

	_, err := r.Resolve(context.Background(), gr, kg)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConversionUnavailable, appErr.Code)
}

func TestResolve_NoEdge(t *testing.T) {
	r := NewResolver(&fakeEdges{})

	_, err := r.Resolve(context.Background(), id.New(), id.New())
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConversionUnavailable, appErr.Code)
}

func TestResolve_NoMultiHop(t *testing.T) {
	gr, kg, t1 := id.New(), id.New(), id.New()
	edges := &fakeEdges{edges: []*Conversion{
		NewConversion(gr, kg, decimal.RequireFromString("0.001")),
		NewConversion(kg, t1, decimal.RequireFromString("0.001")),
	}}
	r := NewResolver(edges)

	_, err := r.Resolve(context.Background(), gr, t1)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConversionUnavailable, appErr.Code)
}

func TestConvert_GramsToKilograms(t *testing.T) {
	gr, kg := id.New(), id.New()
	edges := &fakeEdges{edges: []*Conversion{
		NewConversion(gr, kg, decimal.RequireFromString("0.001")),
	}}
	r := NewResolver(edges)

	qty, f, err := r.Convert(context.Background(), types.NewQuantityFromInt64Scaled(25_000_0000), gr, kg)
	require.NoError(t, err)
	assert.Equal(t, "25.0000", qty.String())
	assert.Equal(t, "0.001", f.Value.String())
}

func TestConvert_RoundTripBounded(t *testing.T) {
	// One hop out and back never drifts more than a quantity unit.
	gr, kg := id.New(), id.New()
	edges := &fakeEdges{edges: []*Conversion{
		NewConversion(gr, kg, decimal.RequireFromString("0.001")),
	}}
	r := NewResolver(edges)
	ctx := context.Background()

	for _, start := range []types.Quantity{
		types.NewQuantityFromFloat64(1),
		types.NewQuantityFromFloat64(250),
		types.NewQuantityFromFloat64(999.9999),
	} {
		base, _, err := r.Convert(ctx, start, gr, kg)
		require.NoError(t, err)
		back, _, err := r.Convert(ctx, base, kg, gr)
		require.NoError(t, err)

		drift := (back - start).Abs()
		assert.LessOrEqual(t, drift.Int64Scaled(), int64(10_000), "start=%s back=%s", start, back)
	}
}
