// Package instrument implements the instrument data model and the
// attribute-based instrument lookup (spec.md §3, §4.5): the currency
// category table, the Descriptor match-rate algorithm, and the resulting
// Lookup used to resolve an inbound SecurityStatusRequest/NewOrderSingle
// symbology to exactly one Instrument.
package instrument

import "github.com/shopspring/decimal"

// SecurityType enumerates the instrument kinds the venue quotes.
type SecurityType int

const (
	Equity SecurityType = iota
	Future
	Forward
	FxSpot
	FxForward
	FxNdf
)

func (s SecurityType) String() string {
	switch s {
	case Equity:
		return "Equity"
	case Future:
		return "Future"
	case Forward:
		return "Forward"
	case FxSpot:
		return "FxSpot"
	case FxForward:
		return "FxForward"
	case FxNdf:
		return "FxNdf"
	default:
		return "Unknown"
	}
}

// CurrencyCategory indicates which of an instrument's two currency legs is
// its "primary" currency for lookup and display purposes.
type CurrencyCategory int

const (
	PriceCurrency CurrencyCategory = iota
	BaseCurrency
)

// CategoryFor implements the currency category table: FX instruments and
// plain forwards are categorized by their base currency; everything else
// (equities, futures) is categorized by its price currency.
func CategoryFor(t SecurityType) CurrencyCategory {
	switch t {
	case Forward, FxSpot, FxForward, FxNdf:
		return BaseCurrency
	default:
		return PriceCurrency
	}
}

// Instrument is one tradable security (spec.md §3). InstrumentId is unique
// venue-wide and assigned at load time.
type Instrument struct {
	InstrumentId   uint64
	Symbol         string
	SecurityType   SecurityType
	BaseCurrency   string
	PriceCurrency  string
	Exchange       string
	TickSize       decimal.Decimal
	MinQuantity    decimal.Decimal
	MaxQuantity    decimal.Decimal
	LotSize        decimal.Decimal
}

// PrimaryCurrency returns the currency leg CategoryFor(i.SecurityType)
// selects.
func (i Instrument) PrimaryCurrency() string {
	if CategoryFor(i.SecurityType) == BaseCurrency {
		return i.BaseCurrency
	}
	return i.PriceCurrency
}

// ConformsToTick reports whether price is an exact multiple of the
// instrument's tick size.
func (i Instrument) ConformsToTick(price decimal.Decimal) bool {
	if i.TickSize.IsZero() {
		return true
	}
	return price.Mod(i.TickSize).IsZero()
}

// WithinQuantityBounds reports whether qty falls within
// [MinQuantity, MaxQuantity] (a zero MaxQuantity means unbounded) and is an
// exact multiple of LotSize (a zero LotSize means no lot constraint).
func (i Instrument) WithinQuantityBounds(qty decimal.Decimal) bool {
	if qty.LessThan(i.MinQuantity) {
		return false
	}
	if !i.MaxQuantity.IsZero() && qty.GreaterThan(i.MaxQuantity) {
		return false
	}
	if !i.LotSize.IsZero() && !qty.Mod(i.LotSize).IsZero() {
		return false
	}
	return true
}
