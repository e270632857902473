// Package controller is the single owner of the helmet's mutable state: the
// sample window, the detectors, cooldowns and the LED state machine. Every
// sample, remote message and LED tick is applied here, one at a time.
package controller

import (
	"context"
	"time"

	"github.com/banshee-data/luma/internal/arbiter"
	"github.com/banshee-data/luma/internal/classifier"
	"github.com/banshee-data/luma/internal/command"
	"github.com/banshee-data/luma/internal/config"
	"github.com/banshee-data/luma/internal/detect"
	"github.com/banshee-data/luma/internal/features"
	"github.com/banshee-data/luma/internal/imu"
	"github.com/banshee-data/luma/internal/led"
	"github.com/banshee-data/luma/internal/link"
	"github.com/banshee-data/luma/internal/monitoring"
	"github.com/banshee-data/luma/internal/protocol"
	"github.com/banshee-data/luma/internal/timeutil"
)

// Config is the detection pipeline's tuning.
type Config struct {
	FastPath detect.FastPathConfig
	Gate     detect.GateConfig
	PostRoll int
	Arbiter  arbiter.Config

	// CrashConfirmation is how long a crash may show before it is logged as
	// unconfirmed. Zero disables the report.
	CrashConfirmation time.Duration
}

// ConfigFrom reads the pipeline settings from a helmet configuration.
func ConfigFrom(c *config.HelmetConfig) Config {
	return Config{
		FastPath: detect.FastPathConfig{
			CrashAccel:           c.GetCrashAccelThreshold(),
			CrashJerk:            c.GetCrashJerkThreshold(),
			BrakeJerk:            c.GetBrakeJerkThreshold(),
			BrakeAccelCeiling:    c.GetBrakeAccelCeiling(),
			BrakeJerkConfidentAt: c.GetBrakeJerkConfidentAt(),
			CrashJerkConfidentAt: c.GetCrashJerkConfidentAt(),
			CrashMagConfidentAt:  c.GetCrashMagConfidentAt(),
		},
		Gate: detect.GateConfig{
			Accel:    c.GetGateAccelThreshold(),
			Jerk:     c.GetGateJerkThreshold(),
			Cooldown: timeutil.Millis(c.GetGateCooldown()),
		},
		PostRoll:          c.GetPostRollSamples(),
		Arbiter:           arbiter.ConfigFrom(c),
		CrashConfirmation: c.GetCrashConfirmation(),
	}
}

// Journal stores decisions that reached the rider. *recorder.Recorder
// implements it.
type Journal interface {
	Record(dec arbiter.Decision) error
}

// Observer sees every classified window. *monitor.WindowPlotter implements it.
type Observer interface {
	Observe(frame *imu.Frame, n int, result detect.Detection)
}

// Deps are the collaborators a Controller drives.
type Deps struct {
	Classifier *classifier.Classifier
	Animator   *led.Animator
	Router     *command.Router
	Link       arbiter.Notifier
	// Now is the device millisecond clock shared with the sample stamps.
	Now func() uint32

	// Optional.
	Journal    Journal
	Observer   Observer
	OnDecision func(arbiter.Decision)
}

// Stats counts pipeline activity.
type Stats struct {
	Samples     int
	FastPath    int
	Classified  int
	LEDErrors   int
	Outcomes    [4]int
	JournalErrs int

	// UnconfirmedCrashes counts crashes still showing after CrashConfirmation.
	UnconfirmedCrashes int
}

// Controller runs the detection pipeline.
type Controller struct {
	cfg  Config
	deps Deps

	window    imu.Window
	frame     imu.Frame
	fast      *detect.FastDetector
	gate      *detect.Gate
	extractor *features.Extractor
	arb       *arbiter.Arbiter

	// post-roll: samples still to collect before classifying, and the
	// timestamp of the sample that opened the capture.
	pending int
	trigger uint32

	// crash confirmation: when the current crash pattern was first seen and
	// whether it has been reported.
	crashShown    bool
	crashSince    uint32
	crashReported bool

	stats Stats
}

// New wires a controller. It takes ownership of deps.Animator.
func New(cfg Config, deps Deps) *Controller {
	return &Controller{
		cfg:       cfg,
		deps:      deps,
		fast:      detect.NewFastPath(cfg.FastPath),
		gate:      detect.NewGate(cfg.Gate),
		extractor: features.NewExtractor(),
		arb:       arbiter.New(cfg.Arbiter, deps.Animator, deps.Link),
	}
}

// Stats returns the activity counters. Only call it from the owning
// goroutine or after Run has returned.
func (c *Controller) Stats() Stats { return c.stats }

// Capturing reports whether a post-roll is in progress.
func (c *Controller) Capturing() bool { return c.pending > 0 }

// Step processes one sample: buffer, telemetry, fast path, then the
// classification gate or the post-roll countdown.
func (c *Controller) Step(s imu.Sample) {
	c.stats.Samples++
	c.window.Push(s)

	pkt := protocol.EncodeSample(s)
	if err := c.deps.Link.Send(protocol.Telemetry, pkt[:]); err != nil {
		monitoring.Debugf("telemetry not delivered: %v", err)
	}

	if d, ok := c.fast.Check(s); ok {
		c.stats.FastPath++
		c.submit(d)
	}

	if c.pending > 0 {
		c.gate.Observe(s)
		c.pending--
		if c.pending == 0 {
			c.classify()
		}
		return
	}

	if c.gate.Check(s, c.window.IsFull()) {
		c.trigger = s.Timestamp
		c.pending = c.cfg.PostRoll
		monitoring.Debugf("gate fired at %dms, collecting %d more samples", s.Timestamp, c.pending)
		if c.pending == 0 {
			c.classify()
		}
	}
}

// classify runs the extractor and classifier over a full window.
func (c *Controller) classify() {
	n := c.window.Snapshot(&c.frame)
	if n < imu.WindowSize {
		return
	}
	v := c.extractor.Extract(c.frame[:n])
	class, conf := c.deps.Classifier.Predict(&v)
	c.stats.Classified++

	d := detect.Detection{Class: class, Confidence: conf, Source: detect.Classifier, Timestamp: c.trigger}
	if c.deps.Observer != nil {
		c.deps.Observer.Observe(&c.frame, n, d)
	}
	c.submit(d)
}

func (c *Controller) submit(d detect.Detection) {
	dec := c.arb.Submit(c.deps.Now(), d)
	if int(dec.Outcome) < len(c.stats.Outcomes) {
		c.stats.Outcomes[dec.Outcome]++
	}
	if dec.Outcome.Notified() && c.deps.Journal != nil {
		if err := c.deps.Journal.Record(dec); err != nil {
			c.stats.JournalErrs++
			monitoring.Logf("failed to journal %s: %v", d.Class, err)
		}
	}
	if c.deps.OnDecision != nil {
		c.deps.OnDecision(dec)
	}
}

// HandleInbound applies a remote lifecycle change or command.
func (c *Controller) HandleInbound(in link.Inbound) {
	switch in.Kind {
	case link.Attach:
		c.deps.Animator.Attach(c.deps.Now())
		monitoring.Logf("remote attached")
	case link.Detach:
		c.deps.Animator.Detach()
		monitoring.Logf("remote detached")
	case link.Command:
		c.deps.Router.Handle(in.Payload)
	}
}

// Tick advances the LED animation and watches for an undismissed crash.
func (c *Controller) Tick() {
	now := c.deps.Now()
	if err := c.deps.Animator.Tick(now); err != nil {
		c.stats.LEDErrors++
		monitoring.Debugf("led frame not shown: %v", err)
	}
	c.watchCrash(now)
}

// watchCrash logs a crash once when it has shown for CrashConfirmation
// without a dismiss.
func (c *Controller) watchCrash(now uint32) {
	if !c.deps.Animator.CrashActive() {
		c.crashShown = false
		return
	}
	if !c.crashShown {
		c.crashShown = true
		c.crashSince = now
		c.crashReported = false
		return
	}
	if c.crashReported || c.cfg.CrashConfirmation <= 0 {
		return
	}
	if timeutil.Elapsed(now, c.crashSince) >= timeutil.Millis(c.cfg.CrashConfirmation) {
		c.crashReported = true
		c.stats.UnconfirmedCrashes++
		monitoring.Logf("crash at %dms not dismissed after %s", c.crashSince, c.cfg.CrashConfirmation)
	}
}

// TickInterval is how often Run ticks the LEDs while no sample arrives. It is
// below the shortest animation interval.
const TickInterval = 10 * time.Millisecond

// Run is the control loop. It consumes samples, remote messages and ticks
// until ctx is done or samples is closed, and ticks the LEDs once per
// iteration.
func (c *Controller) Run(ctx context.Context, samples <-chan imu.Sample, inbound <-chan link.Inbound, ticks <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case s, ok := <-samples:
			if !ok {
				return nil
			}
			c.Step(s)

		case in, ok := <-inbound:
			if !ok {
				inbound = nil
				continue
			}
			c.HandleInbound(in)

		case <-ticks:
		}
		c.Tick()
	}
}
