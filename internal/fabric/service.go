// Package fabric provides the runtime primitives the rest of the core is
// built on: a fixed worker pool, a single-flight ordered executor layered
// over it (the "chained mux"), and a one-second ticking loop. Nothing here
// knows about orders, instruments, or phases — it is the same kind of
// leaf-level concurrency plumbing the teacher's symbol runners and
// snapshot/archive tickers hand-rolled per call site, generalized into
// reusable pieces with an explicit contract.
package fabric

// Service is the minimal capability every executor in this package
// exposes: submit a unit of work, no return value, no error. Components
// above fabric depend on this interface, never on a concrete Pool or
// ChainedMux, so tests can substitute a synchronous stand-in.
type Service interface {
	Execute(task func())
}

// ServiceFunc adapts a plain function to the Service interface.
type ServiceFunc func(task func())

// Execute implements Service.
func (f ServiceFunc) Execute(task func()) { f(task) }

// Inline is a Service that runs every task synchronously on the calling
// goroutine. Used in tests that need deterministic ordering without a
// real pool.
var Inline Service = ServiceFunc(func(task func()) { task() })
