package led

import (
	"fmt"
	"math"
)

// Pattern is one state of the LED state machine.
type Pattern uint8

const (
	Off Pattern = iota
	Brake
	Crash
	TurnLeft
	TurnRight
	Party
	ConnectedGreen
	ArmedRed
	Idle
)

var patternNames = [...]string{
	Off:            "off",
	Brake:          "brake",
	Crash:          "crash",
	TurnLeft:       "turn_left",
	TurnRight:      "turn_right",
	Party:          "party",
	ConnectedGreen: "connected_green",
	ArmedRed:       "armed_red",
	Idle:           "idle",
}

func (p Pattern) String() string {
	if int(p) < len(patternNames) {
		return patternNames[p]
	}
	return fmt.Sprintf("pattern(%d)", uint8(p))
}

// Mode is a pattern with its deadline. Until is only meaningful for Brake
// (overlay expiry) and ConnectedGreen (end of the grace period).
type Mode struct {
	Pattern Pattern
	Until   uint32
}

// animation describes how a pattern renders: a frame is drawn when at least
// interval ms have passed since the previous one, and the phase wraps at
// period. Static patterns have a zero interval and draw once on entry.
type animation struct {
	interval uint32
	period   func(n int) int
	draw     func(px []Color, step int)
}

func fixed(p int) func(int) int { return func(int) int { return p } }

var animations = [...]animation{
	Off: {period: fixed(1), draw: func(px []Color, _ int) { fill(px, Black) }},
	ConnectedGreen: {
		interval: 30,
		period:   fixed(105),
		draw: func(px []Color, step int) {
			breath := (math.Sin(float64(step)*0.06) + 1) * 0.5
			fill(px, Color{G: uint8(breath * 110)})
		},
	},
	ArmedRed: {period: fixed(1), draw: func(px []Color, _ int) { fill(px, Color{R: 60}) }},
	Brake: {
		interval: 40,
		period:   func(n int) int { return n/2 + 1 },
		draw:     drawBrake,
	},
	Crash: {
		interval: 100,
		period:   fixed(2),
		draw: func(px []Color, step int) {
			if step == 0 {
				fill(px, Red)
			} else {
				fill(px, Black)
			}
		},
	},
	TurnLeft: {
		interval: 70,
		period:   func(n int) int { return n/2 + 3 },
		draw:     func(px []Color, step int) { drawTurn(px, step, -1) },
	},
	TurnRight: {
		interval: 70,
		period:   func(n int) int { return n/2 + 3 },
		draw:     func(px []Color, step int) { drawTurn(px, step, 1) },
	},
	Party: {
		interval: 20,
		period:   fixed(256),
		draw: func(px []Color, step int) {
			n := len(px)
			for i := range px {
				hue := (i*65536/n + step*256) % 65536
				px[i] = HSV(uint16(hue), 255, 255).Gamma()
			}
		},
	},
	Idle: {
		interval: 50,
		period:   fixed(209),
		draw: func(px []Color, step int) {
			pulse := (math.Sin(float64(step)*0.03) + 1) * 0.5
			fill(px, Color{B: uint8(pulse*30 + 10)})
		},
	},
}

func fill(px []Color, c Color) {
	for i := range px {
		px[i] = c
	}
}

// drawBrake lights a red bar growing outward from the two centre pixels.
func drawBrake(px []Color, step int) {
	fill(px, Black)
	n := len(px)
	left, right := n/2-1, n/2
	for k := 0; k <= step; k++ {
		if li := left - k; li >= 0 {
			px[li] = Red
		}
		if ri := right + k; ri < n {
			px[ri] = Red
		}
	}
}

// drawTurn sweeps amber from the centre toward one side; dir is -1 for left
// and +1 for right. The last few phases hold the full bar.
func drawTurn(px []Color, step, dir int) {
	fill(px, Black)
	n := len(px)
	half := n / 2
	start := n / 2
	if dir < 0 {
		start = n/2 - 1
	}
	for k := 0; k <= step && k < half; k++ {
		if idx := start + dir*k; idx >= 0 && idx < n {
			px[idx] = Amber
		}
	}
}
