package detect

import (
	"github.com/banshee-data/luma/internal/imu"
	"github.com/banshee-data/luma/internal/timeutil"
)

// GateConfig decides when a window is worth classifying.
type GateConfig struct {
	Accel    float64 // g
	Jerk     float64 // g/s
	Cooldown uint32  // ms between attempts
}

// DefaultGateConfig returns the luma firmware gate.
func DefaultGateConfig() GateConfig {
	return GateConfig{Accel: 1.6, Jerk: 6.0, Cooldown: 800}
}

// Gate is the coarse trigger for a classification attempt. It keeps its own
// previous magnitude, updated on every sample, independent of the fast path.
type Gate struct {
	cfg         GateConfig
	prevMag     float64
	lastAttempt uint32
	attempted   bool
}

// NewGate returns a gate primed at 1 g.
func NewGate(cfg GateConfig) *Gate {
	return &Gate{cfg: cfg, prevMag: 1.0}
}

// Observe feeds s into the jerk memory without considering a trigger. The
// controller uses it while a post-roll is already in progress.
func (g *Gate) Observe(s imu.Sample) {
	g.prevMag = float64(s.AccelMag)
}

// Check reports whether a classification attempt should start on s. It never
// fires before the window is full or inside the attempt cooldown; a firing
// starts a new cooldown.
func (g *Gate) Check(s imu.Sample, windowFull bool) bool {
	mag := float64(s.AccelMag)
	j := jerk(mag, g.prevMag)
	g.prevMag = mag

	if !windowFull {
		return false
	}
	if g.attempted && timeutil.Elapsed(s.Timestamp, g.lastAttempt) < g.cfg.Cooldown {
		return false
	}
	if mag > g.cfg.Accel || j > g.cfg.Jerk {
		g.lastAttempt = s.Timestamp
		g.attempted = true
		return true
	}
	return false
}
