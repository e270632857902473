package led

import (
	"time"

	"github.com/banshee-data/luma/internal/timeutil"
)

// Animator is the LED state machine. It keeps a base mode (what the helmet
// shows at rest: idle, connected, armed, turn or party) and an optional
// overlay (brake or crash) that takes precedence until it expires or is
// dismissed. The overlay's restore target is always the current base mode,
// so a detach or a command that arrives during an overlay is not lost.
//
// Animator is not safe for concurrent use; the controller owns it.
type Animator struct {
	strip  Strip
	pixels []Color
	grace  uint32

	connected bool
	base      Mode
	overlay   Mode
	overlaid  bool

	step       int
	lastUpdate uint32
	fresh      bool
}

// NewAnimator returns an animator in Idle for the given strip. grace is how
// long ConnectedGreen lasts after an attach.
func NewAnimator(strip Strip, grace time.Duration) *Animator {
	return &Animator{
		strip:  strip,
		pixels: make([]Color, strip.Len()),
		grace:  timeutil.Millis(grace),
		base:   Mode{Pattern: Idle},
		fresh:  true,
	}
}

// Current returns the mode being displayed.
func (a *Animator) Current() Mode {
	if a.overlaid {
		return a.overlay
	}
	return a.base
}

// Saved returns the mode that will be restored when the overlay ends.
func (a *Animator) Saved() Mode { return a.base }

// Phase returns the animation phase counter of the displayed pattern.
func (a *Animator) Phase() int { return a.step }

// Connected reports whether a remote is attached.
func (a *Animator) Connected() bool { return a.connected }

func (a *Animator) CrashActive() bool { return a.overlaid && a.overlay.Pattern == Crash }

func (a *Animator) BrakeActive() bool { return a.overlaid && a.overlay.Pattern == Brake }

// Attach starts the connected greeting.
func (a *Animator) Attach(now uint32) {
	a.connected = true
	a.setBase(Mode{Pattern: ConnectedGreen, Until: now + a.grace})
}

// Detach falls back to Idle.
func (a *Animator) Detach() {
	a.connected = false
	a.setBase(Mode{Pattern: Idle})
}

// resting is the base pattern with no turn or party request.
func (a *Animator) resting() Mode {
	if a.connected {
		return Mode{Pattern: ArmedRed}
	}
	return Mode{Pattern: Idle}
}

// Request switches the base mode to a turn signal or party mode. It reports
// false when a crash is showing or p is not a requestable pattern.
func (a *Animator) Request(p Pattern) bool {
	if a.CrashActive() {
		return false
	}
	switch p {
	case TurnLeft, TurnRight, Party:
	default:
		return false
	}
	a.setBase(Mode{Pattern: p})
	return true
}

// Cancel reverts the base mode to rest if it is one of ps.
func (a *Animator) Cancel(ps ...Pattern) bool {
	if a.CrashActive() {
		return false
	}
	for _, p := range ps {
		if a.base.Pattern == p {
			a.setBase(a.resting())
			return true
		}
	}
	return false
}

// TriggerCrash shows the sticky crash overlay. It reports false if a crash
// is already showing.
func (a *Animator) TriggerCrash() bool {
	if a.CrashActive() {
		return false
	}
	a.setOverlay(Mode{Pattern: Crash})
	return true
}

// DismissCrash clears the crash overlay. Any turn or party request made
// before the crash is dropped; the strip returns to rest.
func (a *Animator) DismissCrash() bool {
	if !a.CrashActive() {
		return false
	}
	a.base = a.resting()
	a.clearOverlay()
	return true
}

// TriggerBrake shows the brake overlay until now+hold. An active brake is
// extended without restarting its animation. A crash is never replaced.
func (a *Animator) TriggerBrake(now uint32, hold time.Duration) bool {
	if a.CrashActive() {
		return false
	}
	if a.BrakeActive() {
		return a.ExtendBrake(now, hold)
	}
	a.setOverlay(Mode{Pattern: Brake, Until: now + timeutil.Millis(hold)})
	return true
}

// ExtendBrake pushes an active brake's expiry to now+hold; it never shortens
// it and never touches the phase.
func (a *Animator) ExtendBrake(now uint32, hold time.Duration) bool {
	if !a.BrakeActive() {
		return false
	}
	until := now + timeutil.Millis(hold)
	if timeutil.Reached(until, a.overlay.Until) {
		a.overlay.Until = until
	}
	return true
}

// Blank turns the strip off and drops any overlay. Used on shutdown.
func (a *Animator) Blank(now uint32) error {
	a.overlaid = false
	a.overlay = Mode{}
	a.base = Mode{Pattern: Off}
	a.restart()
	return a.Tick(now)
}

// Tick advances deadlines and, when the displayed pattern's interval has
// passed, draws the next frame and latches it with a single Show.
func (a *Animator) Tick(now uint32) error {
	if a.BrakeActive() && timeutil.Reached(now, a.overlay.Until) {
		a.clearOverlay()
	}
	if a.base.Pattern == ConnectedGreen && timeutil.Reached(now, a.base.Until) {
		a.setBase(Mode{Pattern: ArmedRed})
	}

	p := a.Current().Pattern
	anim := animations[p]
	if !a.fresh && (anim.interval == 0 || timeutil.Elapsed(now, a.lastUpdate) < anim.interval) {
		return nil
	}
	a.fresh = false
	a.lastUpdate = now

	anim.draw(a.pixels, a.step)
	a.step = (a.step + 1) % anim.period(len(a.pixels))
	return a.strip.Show(a.pixels)
}

func (a *Animator) setBase(m Mode) {
	a.base = m
	if !a.overlaid {
		a.restart()
	}
}

func (a *Animator) setOverlay(m Mode) {
	a.overlay = m
	a.overlaid = true
	a.restart()
}

func (a *Animator) clearOverlay() {
	a.overlaid = false
	a.overlay = Mode{}
	a.restart()
}

func (a *Animator) restart() {
	a.step = 0
	a.fresh = true
}
