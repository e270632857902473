// Package arbiter decides which detections reach the rider: it applies
// per-source, per-class cooldowns, brake hysteresis and crash stickiness,
// then drives the LED effects and emits event packets.
package arbiter

import (
	"fmt"
	"time"

	"github.com/banshee-data/luma/internal/config"
	"github.com/banshee-data/luma/internal/detect"
	"github.com/banshee-data/luma/internal/monitoring"
	"github.com/banshee-data/luma/internal/protocol"
	"github.com/banshee-data/luma/internal/timeutil"
)

// Effects is the visual side of an accepted detection. *led.Animator
// implements it.
type Effects interface {
	CrashActive() bool
	BrakeActive() bool
	TriggerCrash() bool
	TriggerBrake(now uint32, hold time.Duration) bool
	ExtendBrake(now uint32, hold time.Duration) bool
}

// Notifier delivers an event packet to the remote. Delivery is fire and
// forget; an error is logged and otherwise ignored.
type Notifier interface {
	Send(ch protocol.Channel, payload []byte) error
}

// Outcome is what the arbiter did with a detection.
type Outcome uint8

const (
	// Suppressed detections change nothing and send nothing.
	Suppressed Outcome = iota
	// Accepted detections drive an LED effect and send an event.
	Accepted
	// Extended brakes push the active brake's expiry without a new event.
	Extended
	// Informational classes send an event and leave the LEDs alone.
	Informational
)

func (o Outcome) String() string {
	switch o {
	case Suppressed:
		return "suppressed"
	case Accepted:
		return "accepted"
	case Extended:
		return "extended"
	case Informational:
		return "informational"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(o))
	}
}

// Notified reports whether the outcome emits an event packet.
func (o Outcome) Notified() bool {
	return o == Accepted || o == Informational
}

// Config holds cooldowns and brake holds. Fast path cooldowns are shorter
// than classifier ones, and crash cooldowns longer than brake ones.
type Config struct {
	FastBrakeCooldown       time.Duration
	FastCrashCooldown       time.Duration
	ClassifierBrakeCooldown time.Duration
	ClassifierCrashCooldown time.Duration
	FastBrakeHold           time.Duration
	ClassifierBrakeHold     time.Duration
}

// ConfigFrom reads the arbitration settings from a helmet configuration.
func ConfigFrom(c *config.HelmetConfig) Config {
	return Config{
		FastBrakeCooldown:       c.GetFastBrakeCooldown(),
		FastCrashCooldown:       c.GetFastCrashCooldown(),
		ClassifierBrakeCooldown: c.GetClassifierBrakeCooldown(),
		ClassifierCrashCooldown: c.GetClassifierCrashCooldown(),
		FastBrakeHold:           c.GetFastBrakeHold(),
		ClassifierBrakeHold:     c.GetClassifierBrakeHold(),
	}
}

// Decision records one arbitration, for the recorder and the replay tool.
type Decision struct {
	Detection detect.Detection
	Outcome   Outcome
	Packet    protocol.EventPacket
}

// Arbiter owns the cooldown state. It is not safe for concurrent use.
type Arbiter struct {
	fx  Effects
	out Notifier

	cooldown [detect.NumSources][detect.NumClasses]uint32
	hold     [detect.NumSources]time.Duration
	last     [detect.NumSources][detect.NumClasses]uint32
	fired    [detect.NumSources][detect.NumClasses]bool
}

// New returns an arbiter with no detections on record.
func New(cfg Config, fx Effects, out Notifier) *Arbiter {
	a := &Arbiter{fx: fx, out: out}
	a.cooldown[detect.FastPath][detect.Brake] = timeutil.Millis(cfg.FastBrakeCooldown)
	a.cooldown[detect.FastPath][detect.Crash] = timeutil.Millis(cfg.FastCrashCooldown)
	a.cooldown[detect.Classifier][detect.Brake] = timeutil.Millis(cfg.ClassifierBrakeCooldown)
	a.cooldown[detect.Classifier][detect.Crash] = timeutil.Millis(cfg.ClassifierCrashCooldown)
	a.hold[detect.FastPath] = cfg.FastBrakeHold
	a.hold[detect.Classifier] = cfg.ClassifierBrakeHold
	return a
}

// ready reports whether the (source, class) cooldown has elapsed at ts. The
// first detection of a pair is never blocked.
func (a *Arbiter) ready(src detect.Source, class detect.EventClass, ts uint32) bool {
	if !a.fired[src][class] {
		return true
	}
	return timeutil.Elapsed(ts, a.last[src][class]) >= a.cooldown[src][class]
}

func (a *Arbiter) mark(src detect.Source, class detect.EventClass, ts uint32) {
	a.last[src][class] = ts
	a.fired[src][class] = true
}

// Submit arbitrates d. Cooldowns are measured on d.Timestamp; brake holds
// run from now, the device time at which the decision is made, which is
// later than d.Timestamp for classifier results.
func (a *Arbiter) Submit(now uint32, d detect.Detection) Decision {
	dec := Decision{Detection: d, Outcome: a.decide(now, d)}
	if dec.Outcome.Notified() {
		dec.Packet = protocol.EncodeEvent(d.Class, d.Confidence)
		if err := a.out.Send(protocol.Events, dec.Packet[:]); err != nil {
			monitoring.Debugf("event %s not delivered: %v", d.Class, err)
		}
	}
	monitoring.Debugf("%s %s conf=%.2f -> %s", d.Source, d.Class, d.Confidence, dec.Outcome)
	return dec
}

func (a *Arbiter) decide(now uint32, d detect.Detection) Outcome {
	if d.Source >= detect.NumSources || !d.Class.Valid() {
		return Suppressed
	}
	switch d.Class {
	case detect.Crash:
		if !a.ready(d.Source, d.Class, d.Timestamp) || a.fx.CrashActive() {
			return Suppressed
		}
		a.mark(d.Source, d.Class, d.Timestamp)
		a.fx.TriggerCrash()
		return Accepted

	case detect.Brake:
		hold := a.hold[d.Source]
		if a.ready(d.Source, d.Class, d.Timestamp) {
			a.mark(d.Source, d.Class, d.Timestamp)
			a.fx.TriggerBrake(now, hold)
			return Accepted
		}
		if a.fx.BrakeActive() {
			a.fx.ExtendBrake(now, hold)
			return Extended
		}
		return Suppressed

	default:
		return Informational
	}
}
