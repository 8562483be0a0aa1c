// The venue definition file (the "-f <xml-config-path>" the CLI requires)
// is the configuration data store spec.md §1 names as out of scope,
// modeled here only as the minimal reader this binary needs to become
// runnable end-to-end. encoding/xml is stdlib rather than an ecosystem
// library on purpose: nothing in the retrieved pack ships an XML parser,
// and this reader sits squarely behind the named-interface boundary
// SPEC_FULL.md §1 draws around the real config store, not inside the
// domain stack the grounding rules ask to maximize third-party usage in.
package main

import (
	"encoding/xml"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openmarket-sim/matchcore/internal/instrument"
	"github.com/openmarket-sim/matchcore/internal/phase"
)

type venueDefinition struct {
	XMLName       xml.Name         `xml:"venue"`
	Timezone      string           `xml:"timezone"`
	Instruments   []instrumentXML  `xml:"instruments>instrument"`
	PhaseSchedule []phaseRecordXML `xml:"phaseSchedule>record"`
}

type instrumentXML struct {
	ID            uint64 `xml:"id,attr"`
	Symbol        string `xml:"symbol,attr"`
	Type          string `xml:"type,attr"`
	PriceCurrency string `xml:"priceCurrency,attr"`
	BaseCurrency  string `xml:"baseCurrency,attr"`
	Exchange      string `xml:"exchange,attr"`
	TickSize      string `xml:"tickSize,attr"`
	MinQuantity   string `xml:"minQuantity,attr"`
	MaxQuantity   string `xml:"maxQuantity,attr"`
	LotSize       string `xml:"lotSize,attr"`
}

type phaseRecordXML struct {
	Begin string `xml:"begin,attr"`
	Kind  string `xml:"kind,attr"`
}

// loadVenueDefinition reads and parses the venue XML file at path.
func loadVenueDefinition(path string) (*venueDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read venue config: %w", err)
	}
	var def venueDefinition
	if err := xml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse venue config: %w", err)
	}
	if len(def.Instruments) == 0 {
		return nil, fmt.Errorf("venue config: no instruments defined")
	}
	if len(def.PhaseSchedule) == 0 {
		return nil, fmt.Errorf("venue config: no phase schedule defined")
	}
	return &def, nil
}

func securityTypeFromString(s string) (instrument.SecurityType, error) {
	switch s {
	case "Equity":
		return instrument.Equity, nil
	case "Future":
		return instrument.Future, nil
	case "Forward":
		return instrument.Forward, nil
	case "FxSpot":
		return instrument.FxSpot, nil
	case "FxForward":
		return instrument.FxForward, nil
	case "FxNdf":
		return instrument.FxNdf, nil
	default:
		return 0, fmt.Errorf("unknown security type %q", s)
	}
}

func optionalDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// instruments parses every <instrument> element into instrument.Instrument.
func (v *venueDefinition) instruments() ([]instrument.Instrument, error) {
	out := make([]instrument.Instrument, 0, len(v.Instruments))
	for _, x := range v.Instruments {
		secType, err := securityTypeFromString(x.Type)
		if err != nil {
			return nil, fmt.Errorf("instrument %d: %w", x.ID, err)
		}
		tickSize, err := optionalDecimal(x.TickSize)
		if err != nil {
			return nil, fmt.Errorf("instrument %d: tickSize: %w", x.ID, err)
		}
		minQty, err := optionalDecimal(x.MinQuantity)
		if err != nil {
			return nil, fmt.Errorf("instrument %d: minQuantity: %w", x.ID, err)
		}
		maxQty, err := optionalDecimal(x.MaxQuantity)
		if err != nil {
			return nil, fmt.Errorf("instrument %d: maxQuantity: %w", x.ID, err)
		}
		lotSize, err := optionalDecimal(x.LotSize)
		if err != nil {
			return nil, fmt.Errorf("instrument %d: lotSize: %w", x.ID, err)
		}
		out = append(out, instrument.Instrument{
			InstrumentId:  x.ID,
			Symbol:        x.Symbol,
			SecurityType:  secType,
			BaseCurrency:  x.BaseCurrency,
			PriceCurrency: x.PriceCurrency,
			Exchange:      x.Exchange,
			TickSize:      tickSize,
			MinQuantity:   minQty,
			MaxQuantity:   maxQty,
			LotSize:       lotSize,
		})
	}
	return out, nil
}

// schedule parses every <record> element into phase.Record.
func (v *venueDefinition) schedule() ([]phase.Record, error) {
	out := make([]phase.Record, 0, len(v.PhaseSchedule))
	for _, x := range v.PhaseSchedule {
		begin, err := time.ParseDuration(x.Begin)
		if err != nil {
			return nil, fmt.Errorf("phase record %q: begin: %w", x.Begin, err)
		}
		var kind phase.Kind
		switch x.Kind {
		case "Open":
			kind = phase.Open
		case "Closed":
			kind = phase.Closed
		default:
			return nil, fmt.Errorf("phase record: unknown kind %q", x.Kind)
		}
		out = append(out, phase.Record{Begin: begin, Kind: kind})
	}
	return out, nil
}
