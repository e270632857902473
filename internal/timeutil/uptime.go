package timeutil

import "time"

// Uptime is the device's monotonic millisecond counter, measured from the
// moment it was created. Like the firmware's millis() it wraps after ~49.7
// days; compare values with Elapsed and Reached, never with < or >.
type Uptime struct {
	clock Clock
	boot  time.Time
}

// NewUptime starts a counter at zero on the given clock.
func NewUptime(clock Clock) *Uptime {
	return &Uptime{clock: clock, boot: clock.Now()}
}

// Millis returns the milliseconds since boot, truncated to 32 bits.
func (u *Uptime) Millis() uint32 {
	return uint32(u.clock.Since(u.boot).Milliseconds())
}

// Elapsed returns now-since in milliseconds, correct across a wrap.
func Elapsed(now, since uint32) uint32 {
	return now - since
}

// Reached reports whether now is at or past deadline, correct across a wrap
// as long as the two are less than ~24.8 days apart.
func Reached(now, deadline uint32) bool {
	return int32(now-deadline) >= 0
}

// Millis converts a duration to a millisecond count for deadline arithmetic.
func Millis(d time.Duration) uint32 {
	if d <= 0 {
		return 0
	}
	return uint32(d.Milliseconds())
}
