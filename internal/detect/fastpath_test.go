package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/luma/internal/imu"
)

func magSample(mag float32, ts uint32) imu.Sample {
	return imu.NewSample(0, 0, mag, 0, 0, 0, ts)
}

func TestFastPath_ImpactIsCrash(t *testing.T) {
	fp := NewFastPath(DefaultFastPathConfig())

	_, ok := fp.Check(magSample(1.0, 0))
	require.False(t, ok, "resting sample")

	d, ok := fp.Check(magSample(3.5, 20))
	require.True(t, ok)
	assert.Equal(t, Crash, d.Class)
	assert.Equal(t, FastPath, d.Source)
	assert.Equal(t, uint32(20), d.Timestamp)
	// jerk 125 g/s saturates the jerk confidence.
	assert.InDelta(t, 1.0, d.Confidence, 1e-6)
}

func TestFastDetector_TagsFastPathSource(t *testing.T) {
	var fd *FastDetector = NewFastPath(DefaultFastPathConfig())
	require.NotNil(t, fd)

	fd.Check(magSample(1.0, 0))
	d, ok := fd.Check(magSample(1.4, 20))
	require.True(t, ok)
	assert.Equal(t, Brake, d.Class)
	assert.Equal(t, FastPath, d.Source)
	assert.NotEqual(t, Classifier, d.Source)
}

func TestFastPath_SustainedJerkIsBrake(t *testing.T) {
	fp := NewFastPath(DefaultFastPathConfig())

	mags := []float32{1.4, 1.8, 1.4, 1.8, 1.4, 1.8}
	for i, m := range mags {
		d, ok := fp.Check(magSample(m, uint32(i*20)))
		require.True(t, ok, "tick %d", i)
		assert.Equal(t, Brake, d.Class, "tick %d", i)
		// jerk 20 g/s on a [14, 30] scale
		assert.InDelta(t, 0.2+0.8*6.0/16.0, d.Confidence, 1e-3, "tick %d", i)
	}
}

func TestFastPath_Rules(t *testing.T) {
	tests := []struct {
		name      string
		prev, mag float32
		want      EventClass
		wantOK    bool
	}{
		{"steady riding", 1.0, 1.02, 0, false},
		{"high magnitude without jerk", 3.1, 3.1, Crash, true},
		{"jerk above crash threshold", 1.0, 1.9, Crash, true},
		{"brake band", 1.0, 1.4, Brake, true},
		{"jerk at threshold is not brake", 1.0, 1.28, 0, false},
		{"jerk under ceiling miss", 2.0, 2.5, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := NewFastPath(DefaultFastPathConfig())
			fp.Check(magSample(tt.prev, 0))
			d, ok := fp.Check(magSample(tt.mag, 20))
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, d.Class)
				assert.GreaterOrEqual(t, d.Confidence, float32(0.2))
				assert.LessOrEqual(t, d.Confidence, float32(1.0))
			}
		})
	}
}

func TestFastPath_CrashConfidenceUsesStrongerSignal(t *testing.T) {
	fp := NewFastPath(DefaultFastPathConfig())
	fp.Check(magSample(4.0, 0))
	d, ok := fp.Check(magSample(4.0, 20))
	require.True(t, ok)
	assert.Equal(t, Crash, d.Class)
	// jerk 0 gives 0.2; magnitude 4.0 on [3, 5] gives 0.6
	assert.InDelta(t, 0.6, d.Confidence, 1e-6)
}

func TestLinearConfidence(t *testing.T) {
	tests := []struct {
		name      string
		v, lo, hi float64
		want      float32
	}{
		{"below", 0, 14, 30, 0.2},
		{"at low", 14, 14, 30, 0.2},
		{"middle", 22, 14, 30, 0.6},
		{"at high", 30, 14, 30, 1.0},
		{"above", 300, 14, 30, 1.0},
		{"degenerate below", 1, 5, 5, 0.2},
		{"degenerate at", 5, 5, 5, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, LinearConfidence(tt.v, tt.lo, tt.hi), 1e-6)
		})
	}
}
