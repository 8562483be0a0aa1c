package phase

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openmarket-sim/matchcore/internal/repository"
)

type recordingEngine struct {
	id uint64

	mu          sync.Mutex
	transitions []Transition
	ticks       int32
}

func (e *recordingEngine) InstrumentID() uint64 { return e.id }
func (e *recordingEngine) Execute(task func()) { task() }

func (e *recordingEngine) OnPhaseTransition(t Transition, cancelResting bool) {
	e.mu.Lock()
	e.transitions = append(e.transitions, t)
	e.mu.Unlock()
}

func (e *recordingEngine) OnTick(ev TickEvent) {
	atomic.AddInt32(&e.ticks, 1)
}

func newTestController(initial Kind) (*Controller, *recordingEngine) {
	repo := repository.New()
	eng := &recordingEngine{id: 1}
	_ = repo.AddEngine(eng)
	repo.Seal()
	access := repository.NewAccessor(repo)

	schedule := NewSchedule([]Record{
		{Begin: 0, Kind: initial},
	})
	c := NewController(schedule, time.UTC, initial, access)
	return c, eng
}

func TestControllerHaltBroadcastsTransition(t *testing.T) {
	c, eng := newTestController(Open)

	if res := c.Halt(true); res != Halted {
		t.Fatalf("expected Halted, got %v", res)
	}

	eng.mu.Lock()
	defer eng.mu.Unlock()
	if len(eng.transitions) != 1 || !eng.transitions[0].Halted {
		t.Fatalf("expected one halt transition broadcast, got %v", eng.transitions)
	}
}

func TestControllerResumeBroadcastsTransition(t *testing.T) {
	c, eng := newTestController(Open)
	c.Halt(true)

	if res := c.Resume(); res != Resumed {
		t.Fatalf("expected Resumed, got %v", res)
	}

	eng.mu.Lock()
	defer eng.mu.Unlock()
	if len(eng.transitions) != 2 {
		t.Fatalf("expected halt+resume transitions, got %v", eng.transitions)
	}
}

func TestControllerTickDeliversToReceivers(t *testing.T) {
	c, eng := newTestController(Open)
	c.loop = nil // drive ticks manually; avoid depending on wall-clock timing
	c.tick(time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC))
	c.tick(time.Date(2026, 8, 1, 10, 0, 1, 0, time.UTC))

	if got := atomic.LoadInt32(&eng.ticks); got != 2 {
		t.Fatalf("expected 2 ticks delivered, got %d", got)
	}
}
