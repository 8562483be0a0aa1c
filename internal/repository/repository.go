// Package repository implements the engine repository and dispatch fabric
// (spec.md §4.3): a startup-only registry mapping InstrumentId to its
// TradingEngine, plus an Accessor used by everything outside the engine
// itself (the phase controller, the admin API, session termination) to
// reach an engine without ever touching it directly.
//
// Grounded on the teacher's session.Manager (internal/session/manager.go):
// the same map-of-handles-plus-mutex shape, generalized from "connected
// client with a subscription set" to "trading engine for one instrument".
package repository

import (
	"fmt"
	"sync"

	"github.com/openmarket-sim/matchcore/internal/fabric"
)

// Engine is the minimal capability the repository needs from a trading
// engine: something addressable by instrument id that accepts work through
// a Service boundary (the engine's own ChainedMux, in practice). The
// repository never calls engine-specific methods directly — every command
// flows in through Execute, which is exactly the single-lane-per-instrument
// guarantee the per-instrument engine relies on.
type Engine interface {
	fabric.Service
	InstrumentID() uint64
}

// ErrSealed is returned by AddEngine once the repository has been sealed.
var ErrSealed = fmt.Errorf("repository: AddEngine called after Seal")

// ErrDuplicateInstrument is returned by AddEngine when an engine is already
// registered for the given instrument id.
var ErrDuplicateInstrument = fmt.Errorf("repository: duplicate instrument id")

// Repository holds one engine per instrument. Per spec.md §4.3, engines are
// only ever added at startup: AddEngine is rejected once Seal has been
// called, so no command-processing path can accidentally race a registry
// mutation against a lookup.
type Repository struct {
	mu      sync.RWMutex
	engines map[uint64]Engine
	sealed  bool
}

// New returns an empty, unsealed Repository.
func New() *Repository {
	return &Repository{engines: make(map[uint64]Engine)}
}

// AddEngine registers e under its InstrumentID. Returns ErrSealed if the
// repository has already been sealed, or ErrDuplicateInstrument if an
// engine for that instrument is already registered.
func (r *Repository) AddEngine(e Engine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return ErrSealed
	}
	id := e.InstrumentID()
	if _, exists := r.engines[id]; exists {
		return ErrDuplicateInstrument
	}
	r.engines[id] = e
	return nil
}

// Seal closes the repository to further registration. Startup calls this
// once instrument loading is complete.
func (r *Repository) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Find returns the engine registered for instrumentID, if any.
func (r *Repository) Find(instrumentID uint64) (Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[instrumentID]
	return e, ok
}

// ForEach calls fn once per registered engine. fn must not block — it runs
// while the repository's read lock is held, the same restriction the
// teacher's session.Manager.Broadcast places on its callback.
func (r *Repository) ForEach(fn func(Engine)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.engines {
		fn(e)
	}
}

// Len reports the number of registered engines.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.engines)
}
