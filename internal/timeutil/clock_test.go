package timeutil

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClock_NewTicker(t *testing.T) {
	clock := RealClock{}
	ticker := clock.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	select {
	case <-ticker.C():
	case <-time.After(time.Second):
		t.Error("ticker did not fire")
	}
}

func TestMockClock_SleepAdvances(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)

	clock.Sleep(300 * time.Millisecond)
	clock.Sleep(300 * time.Millisecond)

	if got := clock.Since(start); got != 600*time.Millisecond {
		t.Errorf("Since(start) = %v, want 600ms", got)
	}
	if got := clock.Sleeps(); len(got) != 2 || got[0] != 300*time.Millisecond {
		t.Errorf("Sleeps() = %v, want [300ms 300ms]", got)
	}
}

func TestMockTicker_FiresOnAdvance(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	ticker := clock.NewTicker(20 * time.Millisecond)

	clock.Advance(10 * time.Millisecond)
	select {
	case <-ticker.C():
		t.Fatal("ticker fired before its interval")
	default:
	}

	clock.Advance(10 * time.Millisecond)
	select {
	case <-ticker.C():
	default:
		t.Fatal("ticker did not fire at its interval")
	}

	ticker.Stop()
	clock.Advance(time.Second)
	select {
	case <-ticker.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestUptime(t *testing.T) {
	clock := NewMockClock(time.Unix(1000, 0))
	up := NewUptime(clock)

	if got := up.Millis(); got != 0 {
		t.Fatalf("Millis() at boot = %d, want 0", got)
	}
	clock.Advance(1500 * time.Millisecond)
	if got := up.Millis(); got != 1500 {
		t.Errorf("Millis() = %d, want 1500", got)
	}
}

func TestReached_Wraparound(t *testing.T) {
	tests := []struct {
		name     string
		now      uint32
		deadline uint32
		want     bool
	}{
		{"before", 100, 200, false},
		{"equal", 200, 200, true},
		{"after", 201, 200, true},
		{"deadline past wrap", 0xFFFFFFF0, 10, false},
		{"now past wrap", 12, 0xFFFFFFF0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Reached(tt.now, tt.deadline); got != tt.want {
				t.Errorf("Reached(%d, %d) = %v, want %v", tt.now, tt.deadline, got, tt.want)
			}
		})
	}

	if got := Elapsed(5, 0xFFFFFFFB); got != 10 {
		t.Errorf("Elapsed across wrap = %d, want 10", got)
	}
}
