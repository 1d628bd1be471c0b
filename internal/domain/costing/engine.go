// Package costing implements weighted-average cost maintenance for item
// variants. The engine is pure: it takes a snapshot of the variant's state
// plus the incoming receipt and returns the new cost pair. Persistence and
// locking belong to the caller.
package costing

import (
	"github.com/shopspring/decimal"

	"mise/internal/core/types"
)

// Input is the state of one variant at the moment a priced inbound line is
// applied. OnHand is the balance AFTER the incoming quantity was added;
// the engine subtracts IncomingQty back out to reconstruct the prior stock.
type Input struct {
	OnHand      types.Quantity
	AvgUnitCost types.Money

	IncomingQty      types.Quantity
	IncomingUnitCost types.Money
}

// Result is the new cost pair for the variant, rounded to the cost scale.
type Result struct {
	AvgUnitCost  types.Money
	LastUnitCost types.Money
}

// UpdateWeightedAverage recomputes the variant's average unit cost after a
// priced receipt:
//
//	newAvg = (priorQty*priorAvg + incomingQty*incomingCost) / (priorQty + incomingQty)
//
// priorQty is clamped at zero: a negative reconstruction (balance adjusted
// outside the ledger) degrades to taking the incoming cost as the new
// average. The last cost always becomes the incoming cost.
func UpdateWeightedAverage(in Input) Result {
	last := types.RoundCost(in.IncomingUnitCost)

	priorQty := in.OnHand - in.IncomingQty
	if priorQty < 0 {
		priorQty = 0
	}

	if priorQty == 0 || in.IncomingQty <= 0 {
		return Result{AvgUnitCost: last, LastUnitCost: last}
	}

	priorDec := priorQty.Decimal()
	incomingDec := in.IncomingQty.Decimal()

	totalQty := priorDec.Add(incomingDec)
	if totalQty.IsZero() {
		return Result{AvgUnitCost: last, LastUnitCost: last}
	}

	totalValue := priorDec.Mul(in.AvgUnitCost).
		Add(incomingDec.Mul(in.IncomingUnitCost))

	avg := totalValue.DivRound(totalQty, types.CostScale)
	if avg.IsNegative() {
		avg = decimal.Zero
	}

	return Result{AvgUnitCost: avg, LastUnitCost: last}
}
