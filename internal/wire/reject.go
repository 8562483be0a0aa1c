// Package wire defines the core's Go-native inbound/outbound message
// types (spec.md §6): one struct per FIX message name, not a single
// shared struct with optional fields for every kind, since the field
// overlap between e.g. NewOrderSingle and MarketDataRequest is
// coincidental, not structural. A real byte-level FIX codec is explicitly
// out of scope (spec.md §1) — transports marshal these types, the core
// never touches wire bytes.
package wire

// RejectReason enumerates why the engine refused to act on a request
// (spec.md §7). Errors are values propagated in an outbound reject
// message, never Go errors thrown across the engine/transport boundary.
type RejectReason int

const (
	RejectNone RejectReason = iota
	UnknownInstrument
	AmbiguousInstrument
	PhaseRejectsOrder
	PhaseRejectsAmend
	PhaseRejectsCancel
	BadPrice
	BadQuantity
	UnsupportedTIF
	MissingField
	UnknownOrder
	InsufficientLiquidity // FOK could not be filled in full
	DuplicateClientOrderId
)

func (r RejectReason) String() string {
	switch r {
	case RejectNone:
		return "None"
	case UnknownInstrument:
		return "UnknownInstrument"
	case AmbiguousInstrument:
		return "AmbiguousInstrument"
	case PhaseRejectsOrder:
		return "PhaseRejectsOrder"
	case PhaseRejectsAmend:
		return "PhaseRejectsAmend"
	case PhaseRejectsCancel:
		return "PhaseRejectsCancel"
	case BadPrice:
		return "BadPrice"
	case BadQuantity:
		return "BadQuantity"
	case UnsupportedTIF:
		return "UnsupportedTIF"
	case MissingField:
		return "MissingField"
	case UnknownOrder:
		return "UnknownOrder"
	case InsufficientLiquidity:
		return "InsufficientLiquidity"
	case DuplicateClientOrderId:
		return "DuplicateClientOrderId"
	default:
		return "Unknown"
	}
}
