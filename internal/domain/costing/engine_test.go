package costing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mise/internal/core/types"
)

func qty(v float64) types.Quantity { return types.NewQuantityFromFloat64(v) }

func TestUpdateWeightedAverage_FirstReceipt(t *testing.T) {
	// 50 KG at 125.50 into an empty balance.
	res := UpdateWeightedAverage(Input{
		OnHand:           qty(50),
		AvgUnitCost:      types.MustMoney("0"),
		IncomingQty:      qty(50),
		IncomingUnitCost: types.MustMoney("125.50"),
	})

	assert.Equal(t, "125.5", res.AvgUnitCost.String())
	assert.Equal(t, "125.5", res.LastUnitCost.String())
}

func TestUpdateWeightedAverage_Blend(t *testing.T) {
	// 10 KG at 100 already held, 20 KG at 150 arrives.
	res := UpdateWeightedAverage(Input{
		OnHand:           qty(30),
		AvgUnitCost:      types.MustMoney("100"),
		IncomingQty:      qty(20),
		IncomingUnitCost: types.MustMoney("150"),
	})

	assert.Equal(t, "133.3333", res.AvgUnitCost.String())
	assert.Equal(t, "150", res.LastUnitCost.String())
}

func TestUpdateWeightedAverage_SameCostStaysPut(t *testing.T) {
	res := UpdateWeightedAverage(Input{
		OnHand:           qty(200),
		AvgUnitCost:      types.MustMoney("42.42"),
		IncomingQty:      qty(100),
		IncomingUnitCost: types.MustMoney("42.42"),
	})

	assert.Equal(t, "42.42", res.AvgUnitCost.String())
	assert.Equal(t, "42.42", res.LastUnitCost.String())
}

func TestUpdateWeightedAverage_NegativePriorDegrades(t *testing.T) {
	// Balance was adjusted below the incoming quantity outside the ledger.
	res := UpdateWeightedAverage(Input{
		OnHand:           qty(5),
		AvgUnitCost:      types.MustMoney("80"),
		IncomingQty:      qty(10),
		IncomingUnitCost: types.MustMoney("90"),
	})

	assert.Equal(t, "90", res.AvgUnitCost.String())
	assert.Equal(t, "90", res.LastUnitCost.String())
}

func TestUpdateWeightedAverage_ZeroIncoming(t *testing.T) {
	res := UpdateWeightedAverage(Input{
		OnHand:           qty(10),
		AvgUnitCost:      types.MustMoney("75"),
		IncomingQty:      qty(0),
		IncomingUnitCost: types.MustMoney("99"),
	})

	assert.Equal(t, "99", res.AvgUnitCost.String())
	assert.Equal(t, "99", res.LastUnitCost.String())
}

func TestUpdateWeightedAverage_RoundsToCostScale(t *testing.T) {
	// 3 units at 10 plus 1 unit at 11: (30+11)/4 = 10.25
	res := UpdateWeightedAverage(Input{
		OnHand:           qty(4),
		AvgUnitCost:      types.MustMoney("10"),
		IncomingQty:      qty(1),
		IncomingUnitCost: types.MustMoney("11"),
	})
	assert.Equal(t, "10.25", res.AvgUnitCost.String())

	// 1 at 10 plus 2 at 10.000033: repeating decimal rounds at 4 digits
	res = UpdateWeightedAverage(Input{
		OnHand:           qty(3),
		AvgUnitCost:      types.MustMoney("10"),
		IncomingQty:      qty(2),
		IncomingUnitCost: types.MustMoney("10.00005"),
	})
	assert.Equal(t, "10.0000", res.AvgUnitCost.StringFixed(4))
}

func TestUpdateWeightedAverage_AvgStaysBetweenBounds(t *testing.T) {
	// The blended average always lands between the prior average and the
	// incoming cost.
	cases := []struct {
		prior    float64
		avg      string
		incoming float64
		cost     string
	}{
		{100, "10", 50, "20"},
		{1, "500", 999, "1"},
		{33.3333, "7.77", 66.6667, "3.33"},
		{0.0001, "12000", 0.0001, "1"},
	}

	for _, tc := range cases {
		in := Input{
			OnHand:           qty(tc.prior) + qty(tc.incoming),
			AvgUnitCost:      types.MustMoney(tc.avg),
			IncomingQty:      qty(tc.incoming),
			IncomingUnitCost: types.MustMoney(tc.cost),
		}
		res := UpdateWeightedAverage(in)

		lo, hi := types.MustMoney(tc.avg), types.MustMoney(tc.cost)
		if lo.GreaterThan(hi) {
			lo, hi = hi, lo
		}
		// Allow the rounding half-step at the cost scale.
		eps := types.MustMoney("0.00005")
		assert.True(t, res.AvgUnitCost.GreaterThanOrEqual(lo.Sub(eps)),
			"avg %s below lower bound %s", res.AvgUnitCost, lo)
		assert.True(t, res.AvgUnitCost.LessThanOrEqual(hi.Add(eps)),
			"avg %s above upper bound %s", res.AvgUnitCost, hi)
	}
}
