// Package detect holds the event vocabulary shared by the detectors and the
// single-sample detectors themselves: the fast path and the classification
// trigger gate.
package detect

import "fmt"

// EventClass is a detected riding event. The numeric values are the class
// codes sent in event packets.
type EventClass uint8

const (
	Brake EventClass = iota
	Bump
	Crash
	Normal
	Turn
)

// NumClasses is the number of event classes.
const NumClasses = 5

var classNames = [NumClasses]string{"brake", "bump", "crash", "normal", "turn"}

func (c EventClass) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// Valid reports whether c is a known class code.
func (c EventClass) Valid() bool {
	return c < NumClasses
}

// Priority orders classes for arbitration: Crash > Brake > Turn > Bump > Normal.
func (c EventClass) Priority() int {
	switch c {
	case Crash:
		return 4
	case Brake:
		return 3
	case Turn:
		return 2
	case Bump:
		return 1
	default:
		return 0
	}
}

// ParseEventClass maps a class name back to its code.
func ParseEventClass(name string) (EventClass, error) {
	for i, n := range classNames {
		if n == name {
			return EventClass(i), nil
		}
	}
	return 0, fmt.Errorf("unknown event class %q", name)
}

// Source identifies which detector produced a Detection.
type Source uint8

const (
	FastPath Source = iota
	Classifier
)

// NumSources is the number of detection sources.
const NumSources = 2

func (s Source) String() string {
	switch s {
	case FastPath:
		return "fast_path"
	case Classifier:
		return "classifier"
	default:
		return fmt.Sprintf("source(%d)", uint8(s))
	}
}

// Detection is a single detector verdict, consumed by the arbiter immediately.
type Detection struct {
	Class      EventClass
	Confidence float32
	Source     Source
	Timestamp  uint32
}

// LinearConfidence maps v from [lo, hi] onto [0.2, 1.0], clamped. A
// degenerate range returns the bound v is on.
func LinearConfidence(v, lo, hi float64) float32 {
	if hi <= lo {
		if v >= hi {
			return 1.0
		}
		return 0.2
	}
	t := (v - lo) / (hi - lo)
	t = min(max(t, 0), 1)
	return float32(0.2 + 0.8*t)
}
