package fabric

import (
	"fmt"
	"sync"
	"time"
)

// ErrLoopStarted is the panic value raised when a callback is registered
// on a SecondLoop that has already started ticking. Callback order is
// fixed at start, matching the registration-time ordering contract the
// phase controller needs (tick callbacks must run in a predictable order
// relative to each other every second).
var ErrLoopStarted = fmt.Errorf("fabric: callback added to a SecondLoop after Start")

// ErrLoopSelfTerminate is the panic value raised when Terminate is called
// from the loop's own goroutine — a callback that tries to stop its own
// loop can never observe the stop complete.
var ErrLoopSelfTerminate = fmt.Errorf("fabric: SecondLoop terminated from its own goroutine")

// SecondLoop runs a fixed set of callbacks, in registration order, once
// every second on a single dedicated goroutine. Grounded on the periodic
// ticker loops the teacher hand-rolled separately for Snapshotter.Run and
// Archiver.Run; SecondLoop is the one generalized version the phase/tick
// controller drives instead of writing its own ticker loop a third time.
type SecondLoop struct {
	interval  time.Duration
	callbacks []func(time.Time)

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	self *goroutineLocal
}

// NewSecondLoop returns a SecondLoop that fires every interval. Pass
// time.Second for the real one-second tick; tests use a shorter interval
// to avoid a real wall-clock second per assertion.
func NewSecondLoop(interval time.Duration) *SecondLoop {
	return &SecondLoop{
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		self:     newGoroutineLocal(),
	}
}

// AddCallback registers cb to run on every tick, in the order AddCallback
// was called. Panics if the loop has already started.
func (l *SecondLoop) AddCallback(cb func(now time.Time)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		panic(ErrLoopStarted)
	}
	l.callbacks = append(l.callbacks, cb)
}

// Start begins ticking on a dedicated goroutine. Safe to call at most
// once.
func (l *SecondLoop) Start() {
	l.mu.Lock()
	l.started = true
	callbacks := l.callbacks
	l.mu.Unlock()

	go l.run(callbacks)
}

func (l *SecondLoop) run(callbacks []func(time.Time)) {
	l.self.Set(1)
	defer close(l.doneCh)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case now := <-ticker.C:
			for _, cb := range callbacks {
				cb(now)
			}
		}
	}
}

// Terminate stops the loop and blocks until its goroutine has exited.
// Panics if called from the loop's own goroutine (i.e. from inside a
// registered callback).
func (l *SecondLoop) Terminate() {
	if l.self.Current() >= 0 {
		panic(ErrLoopSelfTerminate)
	}
	close(l.stopCh)
	<-l.doneCh
}
