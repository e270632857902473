package classifier

import (
	"github.com/banshee-data/luma/internal/detect"
	"github.com/banshee-data/luma/internal/features"
)

// Heuristic is the production rule set over raw (unscaled) features:
// accel-z spread, peak magnitude, peak rotation and jerk.
type Heuristic struct{}

// Name implements Model.
func (Heuristic) Name() string { return "heuristic" }

// Classify implements Model. Rules are tried in priority order.
func (Heuristic) Classify(v *features.Vector) detect.EventClass {
	accelZStd := v[features.AccelZStd]
	accelMagMax := v[features.AccelMagMax]
	gyroMagMax := v[features.GyroMagMax]
	jerkMean := v[features.JerkMean]
	jerkMax := v[features.JerkMax]

	// Impact, jerk and rotation together, or a harder impact with a little
	// less of the other two.
	if (accelMagMax > 3.2 && jerkMax > 55 && gyroMagMax > 220) ||
		(accelMagMax > 3.6 && jerkMax > 45 && gyroMagMax > 180) {
		return detect.Crash
	}

	if jerkMean > 6 && jerkMean < 35 &&
		jerkMax > 14 && jerkMax < 55 &&
		gyroMagMax < 140 &&
		accelMagMax < 2.6 &&
		accelZStd < 0.9 {
		return detect.Brake
	}

	if gyroMagMax > 200 && accelMagMax < 2.2 {
		return detect.Turn
	}

	if accelMagMax > 2.2 && accelMagMax < 3.2 &&
		jerkMax > 18 && jerkMax < 70 {
		return detect.Bump
	}

	return detect.Normal
}

func clamp(v, lo, hi float64) float32 {
	return float32(min(max(v, lo), hi))
}

// Confidence scores class against v by scaling the class's most telling
// features into a class-specific range.
func Confidence(v *features.Vector, class detect.EventClass) float32 {
	am := v[features.AccelMagMax]
	jm := v[features.JerkMean]
	jx := v[features.JerkMax]
	gm := v[features.GyroMagMax]

	switch class {
	case detect.Crash:
		return clamp(max((am-3.0)/1.8, (jx-45.0)/60.0, (gm-180.0)/260.0), 0.2, 1.0)
	case detect.Brake:
		return clamp(0.5*(jm-6.0)/30.0+0.5*(jx-14.0)/40.0, 0.2, 0.95)
	case detect.Turn:
		return clamp((gm-200.0)/250.0, 0.2, 0.9)
	case detect.Bump:
		return clamp((am-2.0)/1.5, 0.2, 0.85)
	default:
		return 0.8
	}
}
