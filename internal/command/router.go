// Package command maps remote commands onto LED pattern changes. Two wire
// schemes exist: text tokens and the legacy single-byte opcodes.
package command

import (
	"bytes"
	"fmt"

	"github.com/banshee-data/luma/internal/config"
	"github.com/banshee-data/luma/internal/led"
	"github.com/banshee-data/luma/internal/monitoring"
)

// Command is a decoded remote request.
type Command uint8

const (
	Unknown Command = iota
	LeftOn
	LeftOff
	RightOn
	RightOff
	TurnOff
	PartyOn
	PartyOff
	CrashDismiss
	// Normal drops any turn or party mode. Only the opcode scheme has it.
	Normal
)

var tokens = map[string]Command{
	"LEFT_ON":       LeftOn,
	"LEFT_OFF":      LeftOff,
	"RIGHT_ON":      RightOn,
	"RIGHT_OFF":     RightOff,
	"TURN_OFF":      TurnOff,
	"PARTY_ON":      PartyOn,
	"PARTY_OFF":     PartyOff,
	"CRASH_DISMISS": CrashDismiss,
}

var opcodes = map[byte]Command{
	0x01: LeftOn,
	0x02: LeftOff,
	0x03: RightOn,
	0x04: RightOff,
	0x05: CrashDismiss,
	0x06: PartyOn,
	0x07: Normal,
}

func (c Command) String() string {
	switch c {
	case Normal:
		return "NORMAL"
	case Unknown:
		return "UNKNOWN"
	}
	for tok, cmd := range tokens {
		if cmd == c {
			return tok
		}
	}
	return fmt.Sprintf("command(%d)", uint8(c))
}

// Target is the state machine commands act on. *led.Animator implements it.
type Target interface {
	Request(p led.Pattern) bool
	Cancel(ps ...led.Pattern) bool
	DismissCrash() bool
}

// Router decodes commands in one scheme and applies them to a Target.
type Router struct {
	scheme string
	target Target
}

// NewRouter returns a router for config.SchemeToken or config.SchemeOpcode.
func NewRouter(scheme string, target Target) (*Router, error) {
	switch scheme {
	case config.SchemeToken, config.SchemeOpcode:
	default:
		return nil, fmt.Errorf("unknown command scheme %q", scheme)
	}
	return &Router{scheme: scheme, target: target}, nil
}

// Scheme returns the active wire scheme.
func (r *Router) Scheme() string { return r.scheme }

// Parse decodes a payload without applying it.
func (r *Router) Parse(payload []byte) Command {
	if r.scheme == config.SchemeOpcode {
		if len(payload) == 0 {
			return Unknown
		}
		return opcodes[payload[0]]
	}
	tok := string(bytes.Trim(payload, " \t\r\n\x00"))
	return tokens[tok]
}

// Handle decodes and applies a payload. It returns the command and whether
// it changed the LED state. Unknown payloads are ignored.
func (r *Router) Handle(payload []byte) (Command, bool) {
	cmd := r.Parse(payload)
	if cmd == Unknown {
		monitoring.Debugf("ignoring unknown %s command %q", r.scheme, payload)
		return cmd, false
	}
	changed := r.apply(cmd)
	monitoring.Debugf("command %s applied=%v", cmd, changed)
	return cmd, changed
}

func (r *Router) apply(cmd Command) bool {
	switch cmd {
	case LeftOn:
		return r.target.Request(led.TurnLeft)
	case RightOn:
		return r.target.Request(led.TurnRight)
	case LeftOff:
		return r.target.Cancel(led.TurnLeft)
	case RightOff:
		return r.target.Cancel(led.TurnRight)
	case TurnOff:
		return r.target.Cancel(led.TurnLeft, led.TurnRight)
	case PartyOn:
		return r.target.Request(led.Party)
	case PartyOff:
		return r.target.Cancel(led.Party)
	case Normal:
		return r.target.Cancel(led.TurnLeft, led.TurnRight, led.Party)
	case CrashDismiss:
		return r.target.DismissCrash()
	}
	return false
}
