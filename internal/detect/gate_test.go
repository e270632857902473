package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGate_NeverFiresBeforeWindowFull(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	assert.False(t, g.Check(magSample(3.0, 0), false))
	assert.False(t, g.Check(magSample(5.0, 20), false))
	// The same event once full fires.
	assert.True(t, g.Check(magSample(5.0, 40), true))
}

func TestGate_Cooldown(t *testing.T) {
	g := NewGate(GateConfig{Accel: 1.6, Jerk: 6.0, Cooldown: 800})

	assert.True(t, g.Check(magSample(2.0, 10000), true))
	assert.False(t, g.Check(magSample(2.0, 10020), true), "inside cooldown")
	assert.False(t, g.Check(magSample(2.0, 10799), true), "inside cooldown")
	assert.True(t, g.Check(magSample(2.0, 10800), true), "cooldown elapsed")
}

func TestGate_FiresOnFirstTriggerAfterBoot(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	// A trigger at 100 ms uptime is not blocked by a cooldown that never started.
	assert.True(t, g.Check(magSample(2.0, 100), true))
}

func TestGate_Thresholds(t *testing.T) {
	tests := []struct {
		name      string
		prev, mag float32
		want      bool
	}{
		{"quiet", 1.0, 1.05, false},
		{"magnitude", 1.65, 1.65, true},
		{"jerk", 1.0, 1.2, true},
		{"below both", 1.0, 1.1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGate(DefaultGateConfig())
			g.Check(magSample(tt.prev, 0), false)
			assert.Equal(t, tt.want, g.Check(magSample(tt.mag, 20), true))
		})
	}
}

func TestEventClass(t *testing.T) {
	assert.Equal(t, "crash", Crash.String())
	assert.Equal(t, uint8(2), uint8(Crash))
	assert.Equal(t, uint8(0), uint8(Brake))
	assert.Equal(t, uint8(4), uint8(Turn))
	assert.True(t, Crash.Priority() > Brake.Priority())
	assert.True(t, Brake.Priority() > Turn.Priority())
	assert.True(t, Turn.Priority() > Bump.Priority())
	assert.True(t, Bump.Priority() > Normal.Priority())
	assert.False(t, EventClass(9).Valid())

	c, err := ParseEventClass("turn")
	assert.NoError(t, err)
	assert.Equal(t, Turn, c)
	_, err = ParseEventClass("wheelie")
	assert.Error(t, err)
}

func TestGate_ObserveUpdatesJerkMemory(t *testing.T) {
	g := NewGate(DefaultGateConfig())
	g.Observe(magSample(1.5, 0))
	// 1.5 -> 1.55 is a 2.5 g/s step: no trigger. Without Observe the step from
	// the primed 1 g would read as 27.5 g/s.
	assert.False(t, g.Check(magSample(1.55, 20), true))
}
