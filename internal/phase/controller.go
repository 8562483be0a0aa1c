package phase

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openmarket-sim/matchcore/internal/fabric"
	"github.com/openmarket-sim/matchcore/internal/repository"
)

// Transition describes a phase change dispatched to every engine.
type Transition struct {
	Kind      Kind
	Halted    bool
	Scheduled bool // true for a schedule-driven transition, false for admin halt/resume
}

// Controller owns the venue's Schedule, StateMachine, and TzClock, and
// drives them from a fabric.SecondLoop tick, broadcasting TickEvents and
// Transitions through a repository.Accessor. Grounded on the teacher's
// Snapshotter/Archiver pattern of a ticker loop owning a piece of state and
// reacting to it every interval, generalized to drive the whole venue
// calendar instead of a single periodic save.
type Controller struct {
	schedule *Schedule
	state    *StateMachine
	clock    *TzClock
	loop     *fabric.SecondLoop
	access   *repository.Accessor

	onTick func(TickEvent)
}

// NewController wires a Controller. loc is the venue's local timezone;
// initial is the scheduled Kind in effect when the controller starts
// (normally Schedule.Select(now) evaluated by the caller at startup).
func NewController(schedule *Schedule, loc *time.Location, initial Kind, access *repository.Accessor) *Controller {
	c := &Controller{
		schedule: schedule,
		state:    NewStateMachine(initial),
		clock:    NewTzClock(loc),
		loop:     fabric.NewSecondLoop(time.Second),
		access:   access,
	}
	c.loop.AddCallback(c.tick)
	return c
}

// Start begins the one-second tick loop.
func (c *Controller) Start() { c.loop.Start() }

// Stop halts the tick loop and blocks until it has exited.
func (c *Controller) Stop() { c.loop.Terminate() }

// OnTick registers a callback invoked with every TickEvent, in addition to
// the controller's own schedule-transition handling. Used by callers (e.g.
// adminapi diagnostics) that want tick visibility without reimplementing
// the loop. Must be called before Start.
func (c *Controller) OnTick(fn func(TickEvent)) { c.onTick = fn }

// Current returns the venue's effective overlaid state.
func (c *Controller) Current() State { return c.state.Current() }

func (c *Controller) tick(now time.Time) {
	ev := c.clock.Tick(now)

	selected := c.schedule.Select(TimeOfDay(ev.TzTickTime))
	changed := c.state.ApplyScheduled(selected.Kind)

	if c.onTick != nil {
		c.onTick(ev)
	}

	if changed {
		c.broadcastScheduledTransition(selected.Kind)
	}

	c.access.Broadcast(func(e repository.Engine) func() {
		return func() {
			if receiver, ok := e.(TickReceiver); ok {
				receiver.OnTick(ev)
			}
		}
	})
}

// TickReceiver is implemented by trading engines that need per-second tick
// visibility (day-boundary housekeeping, GTD expiry sweeps). Engines that
// don't implement it are skipped.
type TickReceiver interface {
	OnTick(ev TickEvent)
}

// broadcastScheduledTransition dispatches a scheduled Open/Closed change to
// every engine. Per the REDESIGN FLAG resolution, a scheduled transition
// into Closed always instructs engines to cancel resting orders — this is
// unconditional, unlike admin halt's configurable amend-down exception.
func (c *Controller) broadcastScheduledTransition(k Kind) {
	log.Info().Str("kind", k.String()).Msg("scheduled phase transition")

	cancelResting := k == Closed
	c.access.Broadcast(func(e repository.Engine) func() {
		return func() {
			if notifier, ok := e.(TransitionReceiver); ok {
				notifier.OnPhaseTransition(Transition{Kind: k, Scheduled: true}, cancelResting)
			}
		}
	})
}

// Halt requests an admin halt and, on success, broadcasts the new state to
// every engine.
func (c *Controller) Halt(allowCancels bool) HaltResult {
	res := c.state.Halt(allowCancels)
	if res == Halted {
		c.access.Broadcast(func(e repository.Engine) func() {
			return func() {
				if notifier, ok := e.(TransitionReceiver); ok {
					notifier.OnPhaseTransition(Transition{Kind: Open, Halted: true}, false)
				}
			}
		})
	}
	return res
}

// Resume clears a standing admin halt and, on success, broadcasts the new
// state to every engine.
func (c *Controller) Resume() ResumeResult {
	res := c.state.Resume()
	if res == Resumed {
		c.access.Broadcast(func(e repository.Engine) func() {
			return func() {
				if notifier, ok := e.(TransitionReceiver); ok {
					notifier.OnPhaseTransition(Transition{Kind: Open, Halted: false}, false)
				}
			}
		})
	}
	return res
}

// TransitionReceiver is implemented by trading engines that want to react
// to phase transitions (cancel resting orders, reject amends, etc).
// Engines that don't implement it simply receive no notification — used by
// tests that register a bare repository.Engine.
type TransitionReceiver interface {
	OnPhaseTransition(t Transition, cancelResting bool)
}
