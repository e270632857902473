package detect

import (
	"math"

	"github.com/banshee-data/luma/internal/imu"
)

// FastPathConfig holds the single-sample thresholds. Magnitudes are in g,
// jerks in g/s.
type FastPathConfig struct {
	CrashAccel        float64
	CrashJerk         float64
	BrakeJerk         float64
	BrakeAccelCeiling float64

	// Confidence reaches 1.0 at these values; it is 0.2 at the thresholds.
	BrakeJerkConfidentAt float64
	CrashJerkConfidentAt float64
	CrashMagConfidentAt  float64
}

// DefaultFastPathConfig returns the thresholds shared by both firmware builds.
func DefaultFastPathConfig() FastPathConfig {
	return FastPathConfig{
		CrashAccel:           3.0,
		CrashJerk:            40.0,
		BrakeJerk:            14.0,
		BrakeAccelCeiling:    2.2,
		BrakeJerkConfidentAt: 30.0,
		CrashJerkConfidentAt: 90.0,
		CrashMagConfidentAt:  5.0,
	}
}

// FastDetector flags crashes and hard braking from the newest sample alone.
// Its detections carry Source FastPath.
type FastDetector struct {
	cfg     FastPathConfig
	prevMag float64
}

// NewFastPath returns a detector primed as if the helmet were at rest (1 g).
func NewFastPath(cfg FastPathConfig) *FastDetector {
	return &FastDetector{cfg: cfg, prevMag: 1.0}
}

// jerk returns the magnitude change against the previous sample in g/s.
func jerk(mag, prev float64) float64 {
	return math.Abs(mag-prev) * imu.SampleRateHz
}

// Check evaluates s and returns at most one detection. Crash rules take
// precedence over brake rules.
func (f *FastDetector) Check(s imu.Sample) (Detection, bool) {
	mag := float64(s.AccelMag)
	j := jerk(mag, f.prevMag)
	f.prevMag = mag

	if mag > f.cfg.CrashAccel || j > f.cfg.CrashJerk {
		conf := max(
			LinearConfidence(j, f.cfg.CrashJerk, f.cfg.CrashJerkConfidentAt),
			LinearConfidence(mag, f.cfg.CrashAccel, f.cfg.CrashMagConfidentAt),
		)
		return Detection{Class: Crash, Confidence: conf, Source: FastPath, Timestamp: s.Timestamp}, true
	}
	if j > f.cfg.BrakeJerk && mag < f.cfg.BrakeAccelCeiling {
		conf := LinearConfidence(j, f.cfg.BrakeJerk, f.cfg.BrakeJerkConfidentAt)
		return Detection{Class: Brake, Confidence: conf, Source: FastPath, Timestamp: s.Timestamp}, true
	}
	return Detection{}, false
}
