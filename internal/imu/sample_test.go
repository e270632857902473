package imu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSample_MagnitudeIsEuclideanNorm(t *testing.T) {
	tests := []struct {
		name       string
		ax, ay, az float32
	}{
		{"at rest", 0, 0, 1},
		{"unit diagonal", 1, 1, 1},
		{"negative axes", -3, 4, 0},
		{"crash", 2.5, -2.1, 1.4},
		{"zero", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSample(tt.ax, tt.ay, tt.az, 10, 20, 30, 7)
			want := math.Sqrt(float64(tt.ax*tt.ax + tt.ay*tt.ay + tt.az*tt.az))
			assert.InDelta(t, want, float64(s.AccelMag), 1e-5)
			assert.Equal(t, uint32(7), s.Timestamp)
		})
	}
}

func TestSample_Plausible(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	assert.True(t, NewSample(0, 0, 1, 0, 0, 0, 0).Plausible())
	assert.True(t, NewSample(-16, 16, 0, -2000, 2000, 0, 0).Plausible())
	assert.False(t, NewSample(nan, 0, 1, 0, 0, 0, 0).Plausible())
	assert.False(t, NewSample(0, 0, 1, 0, inf, 0, 0).Plausible())
	assert.False(t, NewSample(0, 0, 16.5, 0, 0, 0, 0).Plausible())
	assert.False(t, NewSample(0, 0, 1, 0, 0, -2500, 0).Plausible())
}

func TestFromRegisters(t *testing.T) {
	// ax=4096 (1 g), ay=-4096, az=8192, temp ignored, gx=655 (10 deg/s), gy=-131, gz=0
	regs := [14]byte{
		0x10, 0x00,
		0xF0, 0x00,
		0x20, 0x00,
		0xAB, 0xCD,
		0x02, 0x8F,
		0xFF, 0x7D,
		0x00, 0x00,
	}
	s := FromRegisters(regs, 99)

	assert.InDelta(t, 1.0, s.AccelX, 1e-6)
	assert.InDelta(t, -1.0, s.AccelY, 1e-6)
	assert.InDelta(t, 2.0, s.AccelZ, 1e-6)
	assert.InDelta(t, 10.0, s.GyroX, 1e-4)
	assert.InDelta(t, -2.0, s.GyroY, 1e-4)
	assert.InDelta(t, 0.0, s.GyroZ, 1e-6)
	assert.InDelta(t, math.Sqrt(6), s.AccelMag, 1e-5)
	assert.Equal(t, uint32(99), s.Timestamp)
}

func TestSample_GyroMag(t *testing.T) {
	s := NewSample(0, 0, 1, 3, 4, 12, 0)
	assert.InDelta(t, 13.0, s.GyroMag(), 1e-5)
}
