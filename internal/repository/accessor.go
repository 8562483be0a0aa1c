package repository

import "fmt"

// ErrInstrumentNotFound is returned by Unicast when no engine is
// registered for the requested instrument id.
var ErrInstrumentNotFound = fmt.Errorf("repository: instrument not found")

// Accessor is the read-side dispatch surface over a Repository: callers
// outside the engine (phase controller, admin API, session registry) reach
// an engine only through Unicast/Broadcast, never by holding a direct
// reference, so every command still funnels through the target engine's
// own ChainedMux.
type Accessor struct {
	repo *Repository
}

// NewAccessor wraps repo.
func NewAccessor(repo *Repository) *Accessor {
	return &Accessor{repo: repo}
}

// Unicast submits task to the single engine registered for instrumentID.
// Returns ErrInstrumentNotFound if no such engine is registered; task is
// then never run.
func (a *Accessor) Unicast(instrumentID uint64, task func()) error {
	e, ok := a.repo.Find(instrumentID)
	if !ok {
		return ErrInstrumentNotFound
	}
	e.Execute(task)
	return nil
}

// Broadcast submits a task to every registered engine, built per-engine by
// taskFor so callers can close over the engine's own id or state. Dispatch
// order across engines is unspecified; each engine still processes its own
// tasks in submission order via its ChainedMux.
func (a *Accessor) Broadcast(taskFor func(Engine) func()) {
	a.repo.ForEach(func(e Engine) {
		e.Execute(taskFor(e))
	})
}
