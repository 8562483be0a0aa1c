package instrument

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

var securityTypeNames = map[SecurityType]string{
	Equity:    "Equity",
	Future:    "Future",
	Forward:   "Forward",
	FxSpot:    "FxSpot",
	FxForward: "FxForward",
	FxNdf:     "FxNdf",
}

// MarshalJSON renders a SecurityType as its name, not its ordinal, so
// persisted instrument documents stay stable across enum reordering.
func (s SecurityType) MarshalJSON() ([]byte, error) {
	name, ok := securityTypeNames[s]
	if !ok {
		return nil, fmt.Errorf("instrument: unknown SecurityType %d", int(s))
	}
	return json.Marshal(name)
}

// UnmarshalJSON parses a SecurityType from its name.
func (s *SecurityType) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for k, v := range securityTypeNames {
		if v == name {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("instrument: unknown SecurityType %q", name)
}

// instrumentJSON mirrors Instrument for JSON (de)serialization.
type instrumentJSON struct {
	InstrumentId  uint64       `json:"instrument_id"`
	Symbol        string       `json:"symbol"`
	SecurityType  SecurityType `json:"security_type"`
	BaseCurrency  string       `json:"base_currency"`
	PriceCurrency string       `json:"price_currency"`
	Exchange      string       `json:"exchange"`
	TickSize      string       `json:"tick_size"`
	MinQuantity   string       `json:"min_quantity"`
	MaxQuantity   string       `json:"max_quantity"`
	LotSize       string       `json:"lot_size"`
}

// MarshalJSON renders decimal fields as plain strings, matching spec.md's
// "JSON document per instrument" persisted-state wire format rather than
// JSON numbers, which cannot round-trip arbitrary-precision decimals
// losslessly through every JSON reader.
func (i Instrument) MarshalJSON() ([]byte, error) {
	return json.Marshal(instrumentJSON{
		InstrumentId:  i.InstrumentId,
		Symbol:        i.Symbol,
		SecurityType:  i.SecurityType,
		BaseCurrency:  i.BaseCurrency,
		PriceCurrency: i.PriceCurrency,
		Exchange:      i.Exchange,
		TickSize:      i.TickSize.String(),
		MinQuantity:   i.MinQuantity.String(),
		MaxQuantity:   i.MaxQuantity.String(),
		LotSize:       i.LotSize.String(),
	})
}

func (i *Instrument) UnmarshalJSON(data []byte) error {
	var raw instrumentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parsed, err := parseDecimalFields(raw)
	if err != nil {
		return err
	}

	i.InstrumentId = raw.InstrumentId
	i.Symbol = raw.Symbol
	i.SecurityType = raw.SecurityType
	i.BaseCurrency = raw.BaseCurrency
	i.PriceCurrency = raw.PriceCurrency
	i.Exchange = raw.Exchange
	i.TickSize = parsed.tick
	i.MinQuantity = parsed.min
	i.MaxQuantity = parsed.max
	i.LotSize = parsed.lot
	return nil
}

type decimalFields struct {
	tick, min, max, lot decimal.Decimal
}

func parseDecimalFields(raw instrumentJSON) (decimalFields, error) {
	var f decimalFields
	var err error
	if f.tick, err = decimal.NewFromString(raw.TickSize); err != nil {
		return f, fmt.Errorf("instrument: parse tick_size: %w", err)
	}
	if f.min, err = decimal.NewFromString(raw.MinQuantity); err != nil {
		return f, fmt.Errorf("instrument: parse min_quantity: %w", err)
	}
	if f.max, err = decimal.NewFromString(raw.MaxQuantity); err != nil {
		return f, fmt.Errorf("instrument: parse max_quantity: %w", err)
	}
	if f.lot, err = decimal.NewFromString(raw.LotSize); err != nil {
		return f, fmt.Errorf("instrument: parse lot_size: %w", err)
	}
	return f, nil
}
