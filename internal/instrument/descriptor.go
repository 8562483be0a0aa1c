package instrument

// MatchOutcome is the per-attribute comparison result the lookup algorithm
// uses to score a candidate Instrument against a Descriptor.
type MatchOutcome int

const (
	// Match: the attribute was requested and the instrument's value
	// equals it.
	Match MatchOutcome = iota
	// NoMatch: the attribute was requested and the instrument's value
	// differs — this candidate is eliminated outright.
	NoMatch
	// Unmatchable: the attribute was not requested (Descriptor left it
	// unset) and so contributes nothing to the candidate's score.
	Unmatchable
)

// Descriptor is a partial instrument identity supplied by an inbound
// request (FIX symbology tags): any field left at its zero value is
// treated as "not specified" and contributes Unmatchable, never NoMatch.
type Descriptor struct {
	Symbol       *string
	SecurityType *SecurityType
	Currency     *string
	Exchange     *string
}

func matchString(want *string, have string) MatchOutcome {
	if want == nil {
		return Unmatchable
	}
	if *want == have {
		return Match
	}
	return NoMatch
}

func matchSecurityType(want *SecurityType, have SecurityType) MatchOutcome {
	if want == nil {
		return Unmatchable
	}
	if *want == have {
		return Match
	}
	return NoMatch
}

// outcomes returns the per-attribute match outcome of d against inst, in a
// fixed, stable order (Symbol, SecurityType, Currency, Exchange).
func (d Descriptor) outcomes(inst Instrument) [4]MatchOutcome {
	return [4]MatchOutcome{
		matchString(d.Symbol, inst.Symbol),
		matchSecurityType(d.SecurityType, inst.SecurityType),
		matchString(d.Currency, inst.PrimaryCurrency()),
		matchString(d.Exchange, inst.Exchange),
	}
}

// matchRate scores inst against d: eliminated is true if any requested
// attribute produced NoMatch; rate counts the Match outcomes otherwise.
func (d Descriptor) matchRate(inst Instrument) (rate int, eliminated bool) {
	for _, o := range d.outcomes(inst) {
		switch o {
		case NoMatch:
			return 0, true
		case Match:
			rate++
		}
	}
	return rate, false
}
