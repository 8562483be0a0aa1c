package fabric

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrMuxReentrant is the panic value raised when a ChainedMux is destroyed
// while a task is still running on it. A locked mux means a completion is
// pending; destroying it anyway would either race the in-flight task or
// silently drop whatever it was about to do, so this aborts instead.
var ErrMuxReentrant = fmt.Errorf("fabric: chained mux destroyed while locked")

// ChainedMux is a single-flight, strictly-ordered executor layered over a
// shared Service (normally a Pool). At most one task submitted through a
// given ChainedMux is ever running at a time, and tasks run in the order
// Post was called, even though the underlying Service may run unrelated
// work from other muxes concurrently. This is the "one engine, one lane"
// guarantee the per-instrument trading engine relies on: every command
// against a given instrument completes before the next one starts, while
// unrelated instruments still run in parallel across the shared pool.
//
// Grounded on the ordering the teacher achieves implicitly by giving every
// symbol its own goroutine in cmd/feedsim/main.go; ChainedMux gives the
// same per-key ordering guarantee without needing a dedicated goroutine per
// key, so the shared Pool's worker count bounds total concurrency instead
// of the instrument count.
type ChainedMux struct {
	svc Service

	mu      sync.Mutex
	locked  bool
	pending []func()
}

// NewChainedMux returns a ChainedMux that submits work to svc.
func NewChainedMux(svc Service) *ChainedMux {
	return &ChainedMux{svc: svc}
}

// Post schedules t to run once every task already posted to this mux has
// completed. Implements Service, so a ChainedMux can itself be passed
// anywhere a Service is expected (e.g. to compose layered muxes).
func (m *ChainedMux) Post(t func()) {
	m.mu.Lock()
	if m.locked {
		m.pending = append(m.pending, t)
		m.mu.Unlock()
		return
	}
	m.locked = true
	m.mu.Unlock()

	m.svc.Execute(func() { m.run(t) })
}

// Execute implements Service by delegating to Post.
func (m *ChainedMux) Execute(t func()) { m.Post(t) }

// runTask invokes t, converting any panic into a fatal zerolog entry and
// process exit (spec.md §7): a panic escaping the engine's own mux means
// its single-lane ordering guarantee is broken mid-command, so the process
// must stop loudly rather than let the mux limp on in an undefined state.
func runTask(t func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Fatal().Interface("panic", r).Msg("engine task panicked, aborting")
		}
	}()
	t()
}

func (m *ChainedMux) run(t func()) {
	runTask(t)

	m.mu.Lock()
	if len(m.pending) == 0 {
		m.locked = false
		m.mu.Unlock()
		return
	}
	next := m.pending
	m.pending = nil
	m.mu.Unlock()

	m.svc.Execute(func() { m.runBatch(next) })
}

// runBatch executes a chained batch of tasks that accumulated while the mux
// was busy, then checks once more for further arrivals before unlocking —
// this is the "chain the whole pending queue as one task" behavior, so a
// burst of Posts during a long-running task costs one re-submission to the
// underlying Service instead of one per queued task.
func (m *ChainedMux) runBatch(batch []func()) {
	for _, t := range batch {
		runTask(t)
	}

	m.mu.Lock()
	if len(m.pending) == 0 {
		m.locked = false
		m.mu.Unlock()
		return
	}
	next := m.pending
	m.pending = nil
	m.mu.Unlock()

	m.svc.Execute(func() { m.runBatch(next) })
}

// Destroy releases the mux. It panics if the mux is still locked (a task
// in flight or queued tasks waiting behind it) — destroying a busy mux
// would either race the running task or silently discard queued work. If
// the mux is idle but had tasks dropped by a prior caller ignoring this
// contract, Destroy logs the loss instead of aborting, since at that point
// there is no in-flight state left to corrupt.
func (m *ChainedMux) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.locked {
		panic(ErrMuxReentrant)
	}
	if len(m.pending) > 0 {
		log.Error().Int("dropped_tasks", len(m.pending)).Msg("chained mux destroyed with a non-empty pending queue")
		m.pending = nil
	}
}

// Locked reports whether a task is currently running (or queued) on this
// mux. Intended for tests and diagnostics, not for control flow.
func (m *ChainedMux) Locked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locked
}
