package order

import "github.com/shopspring/decimal"

// Amendment describes a requested change to a resting order's price and/or
// leaves quantity (an OrderCancelReplaceRequest, spec.md §6).
type Amendment struct {
	OrigClientOrderId string
	NewClientOrderId  string
	NewPrice          decimal.Decimal
	NewQuantity       decimal.Decimal
}

// CumQuantity returns the quantity of existing already executed
// (Quantity - LeavesQuantity).
func CumQuantity(existing Order) decimal.Decimal {
	return existing.Quantity.Sub(existing.LeavesQuantity)
}

// IsQuantityReductionOnly reports whether amd changes only the quantity,
// and only downward relative to existing's original Quantity (never below
// what has already executed), with price left unchanged — the "amend-down"
// shape the phase state machine allows even while halted with AllowCancels
// set (SPEC_FULL.md §4.4 resolution of spec.md's first open question).
// Any other requested change (a price change, a quantity increase, or a
// reduction below cum) is not a pure reduction and must go through
// remove-and-replace instead.
func (amd Amendment) IsQuantityReductionOnly(existing Order) bool {
	if !amd.NewPrice.IsZero() && !amd.NewPrice.Equal(existing.Price) {
		return false
	}
	if amd.NewQuantity.Sign() <= 0 || !amd.NewQuantity.LessThan(existing.Quantity) {
		return false
	}
	return !amd.NewQuantity.LessThan(CumQuantity(existing))
}
