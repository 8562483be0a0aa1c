package phase

import "time"

// TickEvent is produced once per second by the Controller's SecondLoop
// callback (spec.md §4.2/§8).
type TickEvent struct {
	SysTickTime time.Time
	TzTickTime  time.Time
	IsNewSysDay bool
	IsNewTzDay  bool
}

// TzClock converts system time into venue-local time and tracks day
// boundaries in both clocks, so the Controller can compute IsNewSysDay and
// IsNewTzDay without recomputing "day" from scratch on every tick.
type TzClock struct {
	loc *time.Location

	haveLast   bool
	lastSysDay int
	lastTzDay  int
}

// NewTzClock returns a TzClock that converts into loc.
func NewTzClock(loc *time.Location) *TzClock {
	return &TzClock{loc: loc}
}

func ymd(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// Tick converts sys (assumed UTC, or any consistent system clock) into a
// TickEvent, comparing today's date in each clock against the previous
// call's date to derive IsNewSysDay/IsNewTzDay. The first call never
// reports a new day in either clock — there is no prior tick to compare
// against.
func (c *TzClock) Tick(sys time.Time) TickEvent {
	tz := sys.In(c.loc)

	sysDay := ymd(sys)
	tzDay := ymd(tz)

	ev := TickEvent{SysTickTime: sys, TzTickTime: tz}
	if c.haveLast {
		ev.IsNewSysDay = sysDay != c.lastSysDay
		ev.IsNewTzDay = tzDay != c.lastTzDay
	}
	c.haveLast = true
	c.lastSysDay = sysDay
	c.lastTzDay = tzDay
	return ev
}

// TimeOfDay returns t's offset since local midnight in t's own location,
// the input Schedule.Select expects.
func TimeOfDay(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
}
