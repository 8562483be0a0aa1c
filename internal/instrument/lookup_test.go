package instrument

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func strPtr(s string) *string             { return &s }
func typePtr(t SecurityType) *SecurityType { return &t }

func newFixture() *Lookup {
	l := NewLookup()
	l.Add(Instrument{InstrumentId: 1, Symbol: "ACME", SecurityType: Equity, PriceCurrency: "USD", Exchange: "XNAS"})
	l.Add(Instrument{InstrumentId: 2, Symbol: "ACME", SecurityType: Future, PriceCurrency: "USD", Exchange: "XCME"})
	l.Add(Instrument{InstrumentId: 3, Symbol: "EURUSD", SecurityType: FxSpot, BaseCurrency: "EUR", PriceCurrency: "USD", Exchange: "FXALL"})
	return l
}

func TestResolveUniqueMatch(t *testing.T) {
	l := newFixture()
	inst, err := l.Resolve(Descriptor{Symbol: strPtr("EURUSD")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inst.InstrumentId != 3 {
		t.Fatalf("expected instrument 3, got %d", inst.InstrumentId)
	}
}

func TestResolveDisambiguatesBySecurityType(t *testing.T) {
	l := newFixture()
	inst, err := l.Resolve(Descriptor{Symbol: strPtr("ACME"), SecurityType: typePtr(Future)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inst.InstrumentId != 2 {
		t.Fatalf("expected instrument 2, got %d", inst.InstrumentId)
	}
}

// Scenario F: a descriptor that matches more than one instrument on the
// attributes it specifies must be reported ambiguous, not resolved to an
// arbitrary winner.
func TestResolveAmbiguousWhenDescriptorUnderspecified(t *testing.T) {
	l := newFixture()
	_, err := l.Resolve(Descriptor{Symbol: strPtr("ACME")})
	if err != ErrAmbiguous {
		t.Fatalf("expected ErrAmbiguous, got %v", err)
	}
}

func TestResolveNotFound(t *testing.T) {
	l := newFixture()
	_, err := l.Resolve(Descriptor{Symbol: strPtr("NOPE")})
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCurrencyCategoryTable(t *testing.T) {
	cases := map[SecurityType]CurrencyCategory{
		Equity:    PriceCurrency,
		Future:    PriceCurrency,
		Forward:   BaseCurrency,
		FxSpot:    BaseCurrency,
		FxForward: BaseCurrency,
		FxNdf:     BaseCurrency,
	}
	for st, want := range cases {
		if got := CategoryFor(st); got != want {
			t.Errorf("CategoryFor(%v) = %v, want %v", st, got, want)
		}
	}
}

// Round-trip property (spec.md §8): encoding then decoding an instrument
// descriptor document must reproduce it exactly.
func TestInstrumentJSONRoundTrip(t *testing.T) {
	orig := Instrument{
		InstrumentId:  42,
		Symbol:        "EURUSD",
		SecurityType:  FxForward,
		BaseCurrency:  "EUR",
		PriceCurrency: "USD",
		Exchange:      "FXALL",
		TickSize:      decimal.RequireFromString("0.0001"),
		MinQuantity:   decimal.RequireFromString("1000"),
		MaxQuantity:   decimal.RequireFromString("10000000"),
		LotSize:       decimal.RequireFromString("1000"),
	}

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var round Instrument
	if err := json.Unmarshal(data, &round); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if round.InstrumentId != orig.InstrumentId || round.Symbol != orig.Symbol ||
		round.SecurityType != orig.SecurityType || round.BaseCurrency != orig.BaseCurrency ||
		round.PriceCurrency != orig.PriceCurrency || round.Exchange != orig.Exchange {
		t.Fatalf("round-trip mismatch on scalar fields: %+v vs %+v", orig, round)
	}
	if !round.TickSize.Equal(orig.TickSize) || !round.MinQuantity.Equal(orig.MinQuantity) ||
		!round.MaxQuantity.Equal(orig.MaxQuantity) || !round.LotSize.Equal(orig.LotSize) {
		t.Fatalf("round-trip mismatch on decimal fields: %+v vs %+v", orig, round)
	}
}
