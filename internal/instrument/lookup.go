package instrument

import (
	"fmt"
	"sync"
)

// ErrNotFound is returned by Resolve when no registered instrument
// survives elimination against the descriptor.
var ErrNotFound = fmt.Errorf("instrument: no instrument matches descriptor")

// ErrAmbiguous is returned by Resolve when more than one surviving
// instrument ties for the highest match rate.
var ErrAmbiguous = fmt.Errorf("instrument: descriptor matches more than one instrument")

// Lookup resolves a Descriptor to exactly one Instrument using the
// match-rate algorithm (spec.md §4.5): candidates with any NoMatch
// attribute are eliminated outright; among the rest, the candidate(s) with
// the highest count of Match attributes win; a tie among the highest
// scorers is ambiguous.
type Lookup struct {
	mu          sync.RWMutex
	instruments map[uint64]Instrument
}

// NewLookup returns an empty Lookup.
func NewLookup() *Lookup {
	return &Lookup{instruments: make(map[uint64]Instrument)}
}

// Add registers inst for lookup, keyed by its InstrumentId.
func (l *Lookup) Add(inst Instrument) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.instruments[inst.InstrumentId] = inst
}

// Get returns the instrument registered under id, if any.
func (l *Lookup) Get(id uint64) (Instrument, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	inst, ok := l.instruments[id]
	return inst, ok
}

// Resolve finds the unique instrument best matching d.
func (l *Lookup) Resolve(d Descriptor) (Instrument, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var best []Instrument
	bestRate := -1

	for _, inst := range l.instruments {
		rate, eliminated := d.matchRate(inst)
		if eliminated {
			continue
		}
		switch {
		case rate > bestRate:
			bestRate = rate
			best = []Instrument{inst}
		case rate == bestRate:
			best = append(best, inst)
		}
	}

	switch len(best) {
	case 0:
		return Instrument{}, ErrNotFound
	case 1:
		return best[0], nil
	default:
		return Instrument{}, ErrAmbiguous
	}
}
