// Package imu produces 6-axis inertial samples and keeps the rolling window
// the classifier reads from.
package imu

import (
	"math"
	"time"
)

// Fixed pipeline constants. The deployed classifier was trained on windows of
// exactly this shape; changing them requires retraining.
const (
	SampleRateHz   = 50
	WindowSize     = 150
	SampleInterval = time.Second / SampleRateHz
)

// Sensor full-scale limits. Readings outside them are treated as glitches.
const (
	AccelRangeG   = 16.0
	GyroRangeDPS  = 2000.0
	accelLSBPerG  = 4096.0 // ±8 g
	gyroLSBPerDPS = 65.5   // ±500 deg/s
)

// Sample is one 6-axis reading. Acceleration is in g, angular rate in deg/s,
// Timestamp is the device's millisecond uptime. Treat it as immutable; use
// NewSample so AccelMag stays consistent with the axes.
type Sample struct {
	AccelX, AccelY, AccelZ float32
	GyroX, GyroY, GyroZ    float32
	AccelMag               float32
	Timestamp              uint32
}

// NewSample builds a Sample and derives its acceleration magnitude.
func NewSample(ax, ay, az, gx, gy, gz float32, ts uint32) Sample {
	return Sample{
		AccelX: ax, AccelY: ay, AccelZ: az,
		GyroX: gx, GyroY: gy, GyroZ: gz,
		AccelMag:  float32(math.Sqrt(float64(ax)*float64(ax) + float64(ay)*float64(ay) + float64(az)*float64(az))),
		Timestamp: ts,
	}
}

// GyroMag returns the Euclidean norm of the angular rate.
func (s Sample) GyroMag() float32 {
	gx, gy, gz := float64(s.GyroX), float64(s.GyroY), float64(s.GyroZ)
	return float32(math.Sqrt(gx*gx + gy*gy + gz*gz))
}

// Restamped returns a copy of s carrying a different timestamp.
func (s Sample) Restamped(ts uint32) Sample {
	s.Timestamp = ts
	return s
}

// Plausible reports whether every axis is finite and inside the sensor's
// full-scale range.
func (s Sample) Plausible() bool {
	for _, v := range [...]float32{s.AccelX, s.AccelY, s.AccelZ} {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > AccelRangeG {
			return false
		}
	}
	for _, v := range [...]float32{s.GyroX, s.GyroY, s.GyroZ} {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > GyroRangeDPS {
			return false
		}
	}
	return true
}

// FromRegisters decodes a 14-byte MPU6500 burst read starting at ACCEL_XOUT_H
// (big-endian accel x/y/z, temperature, gyro x/y/z) configured for ±8 g and
// ±500 deg/s.
func FromRegisters(regs [14]byte, ts uint32) Sample {
	word := func(i int) float32 {
		return float32(int16(uint16(regs[i])<<8 | uint16(regs[i+1])))
	}
	return NewSample(
		word(0)/accelLSBPerG, word(2)/accelLSBPerG, word(4)/accelLSBPerG,
		word(8)/gyroLSBPerDPS, word(10)/gyroLSBPerDPS, word(12)/gyroLSBPerDPS,
		ts,
	)
}
