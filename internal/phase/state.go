package phase

import "sync"

// HaltResult is the outcome of an admin halt request (spec.md §6).
type HaltResult int

const (
	Halted HaltResult = iota
	AlreadyHaltedByRequest
	NoActivePhase
	UnableToHalt
)

func (r HaltResult) String() string {
	switch r {
	case Halted:
		return "Halted"
	case AlreadyHaltedByRequest:
		return "AlreadyHaltedByRequest"
	case NoActivePhase:
		return "NoActivePhase"
	default:
		return "UnableToHalt"
	}
}

// ResumeResult is the outcome of an admin resume request (spec.md §6).
type ResumeResult int

const (
	Resumed ResumeResult = iota
	NoRequestedHalt
)

func (r ResumeResult) String() string {
	if r == Resumed {
		return "Resumed"
	}
	return "NoRequestedHalt"
}

// State is the effective, overlaid phase a trading engine observes: the
// scheduled Kind with an admin halt, if any, laid on top.
type State struct {
	Kind         Kind
	Halted       bool
	AllowCancels bool
}

// StateMachine overlays admin halt/resume requests on top of whatever Kind
// the Schedule currently selects. Scheduled transitions and admin
// halt/resume are independent axes: a scheduled Open->Closed transition
// always wins over a standing halt (the venue closes regardless), while an
// admin halt only ever applies while the scheduled Kind is Open.
type StateMachine struct {
	mu sync.Mutex

	scheduled Kind
	halted    bool
	allowCxl  bool

	// AllowHalt gates whether Halt can ever succeed on this venue. Default
	// true; a venue operator can disable halting entirely via config.
	AllowHalt bool
}

// NewStateMachine starts in the given scheduled Kind, not halted.
func NewStateMachine(initial Kind) *StateMachine {
	return &StateMachine{scheduled: initial, AllowHalt: true}
}

// Current returns the effective overlaid state.
func (s *StateMachine) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Kind: s.scheduled, Halted: s.halted, AllowCancels: s.allowCxl}
}

// ApplyScheduled updates the scheduled Kind, as selected by Schedule.Select
// for the current tick. Per the REDESIGN FLAG resolution (SPEC_FULL.md
// §4.2), a scheduled transition into Closed always clears any standing
// admin halt — the venue is closed either way, and a halt has no meaning
// against a closed venue. Returns true if this call changed the scheduled
// Kind (a "scheduled transition" the Controller must broadcast).
func (s *StateMachine) ApplyScheduled(k Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := k != s.scheduled
	s.scheduled = k
	if k == Closed {
		s.halted = false
		s.allowCxl = false
	}
	return changed
}

// Halt requests an admin halt with the given cancel-acceptance policy.
func (s *StateMachine) Halt(allowCancels bool) HaltResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.AllowHalt {
		return UnableToHalt
	}
	if s.scheduled != Open {
		return NoActivePhase
	}
	if s.halted {
		return AlreadyHaltedByRequest
	}
	s.halted = true
	s.allowCxl = allowCancels
	return Halted
}

// Resume clears a standing admin halt.
func (s *StateMachine) Resume() ResumeResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.halted {
		return NoRequestedHalt
	}
	s.halted = false
	s.allowCxl = false
	return Resumed
}
