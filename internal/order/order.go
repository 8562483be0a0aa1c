// Package order defines the order-entry types the matching engine
// operates on: sides, time-in-force, and the limit/market order variants
// (spec.md §3). Validation against an instrument's tick/quantity
// constraints lives here too, since it is purely a function of an Order
// and an Instrument, independent of book state.
package order

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openmarket-sim/matchcore/internal/instrument"
)

// Side is the order's buy/sell direction.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "Buy"
	}
	return "Sell"
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// TimeInForce controls how long an order rests and what happens to any
// unfilled residual.
type TimeInForce int

const (
	Day TimeInForce = iota
	GTC
	GTD
	IOC
	FOK
)

func (t TimeInForce) String() string {
	switch t {
	case Day:
		return "Day"
	case GTC:
		return "GTC"
	case GTD:
		return "GTD"
	case IOC:
		return "IOC"
	case FOK:
		return "FOK"
	default:
		return "Unknown"
	}
}

// RestsInBook reports whether an order with this TIF can remain on the
// book after the initial matching pass, rather than having any residual
// expired immediately.
func (t TimeInForce) RestsInBook() bool {
	return t == Day || t == GTC || t == GTD
}

// OrderType distinguishes a priced limit order from an unpriced market
// order.
type OrderType int

const (
	Limit OrderType = iota
	Market
)

// Order is one order-entry request against a single instrument. Price is
// the zero Decimal for Market orders.
type Order struct {
	OrderId           uint64
	ClientOrderId     string
	InstrumentId      uint64
	Side              Side
	Type              OrderType
	Price             decimal.Decimal
	Quantity          decimal.Decimal
	LeavesQuantity    decimal.Decimal
	TimeInForce       TimeInForce
	ExpireTime        time.Time // meaningful only when TimeInForce == GTD
	SessionId         string
	SubmittedAt       time.Time
	Priority          uint64 // assigned by the book: monotonic, breaks price ties FIFO
}

// ValidationReason classifies why Order.Validate rejected an order,
// letting a caller map the failure onto its own reject vocabulary
// (wire.RejectReason) without string-matching an error message.
type ValidationReason int

const (
	ValidationOK ValidationReason = iota
	ValidationBadPrice
	ValidationBadQuantity
	ValidationUnsupportedTIF
	ValidationMissingField
)

// ValidationError is the error type Order.Validate returns; Reason carries
// the classification, Error() the human-readable detail.
type ValidationError struct {
	Reason ValidationReason
	msg    string
}

func (e *ValidationError) Error() string { return e.msg }

func validationErr(reason ValidationReason, msg string) *ValidationError {
	return &ValidationError{Reason: reason, msg: msg}
}

// Validate checks an inbound order against inst's tick/quantity
// constraints and its own internal consistency. It does not check phase
// or book state — that is the engine's job.
func (o Order) Validate(inst instrument.Instrument) error {
	if o.SessionId == "" || o.ClientOrderId == "" {
		return validationErr(ValidationMissingField, "order: session id and client order id are required")
	}
	if o.Quantity.Sign() <= 0 {
		return validationErr(ValidationBadQuantity, "order: quantity must be positive")
	}
	if !inst.WithinQuantityBounds(o.Quantity) {
		return validationErr(ValidationBadQuantity, fmt.Sprintf("order: quantity %s violates instrument bounds", o.Quantity))
	}
	if o.Type == Limit {
		if o.Price.Sign() <= 0 {
			return validationErr(ValidationBadPrice, "order: limit price must be positive")
		}
		if !inst.ConformsToTick(o.Price) {
			return validationErr(ValidationBadPrice, fmt.Sprintf("order: price %s does not conform to tick size %s", o.Price, inst.TickSize))
		}
	}
	if o.TimeInForce == GTD && o.ExpireTime.IsZero() {
		return validationErr(ValidationMissingField, "order: GTD order requires an expire time")
	}
	if o.Type == Market && (o.TimeInForce == GTC || o.TimeInForce == GTD || o.TimeInForce == Day) {
		return validationErr(ValidationUnsupportedTIF, "order: market orders must be IOC or FOK")
	}
	return nil
}

// IsExpiredGTD reports whether a resting GTD order has passed its expiry
// as of now.
func (o Order) IsExpiredGTD(now time.Time) bool {
	return o.TimeInForce == GTD && !o.ExpireTime.IsZero() && !now.Before(o.ExpireTime)
}
