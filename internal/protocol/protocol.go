// Package protocol defines the fixed binary packets the helmet notifies on its
// telemetry and events channels. All fields are little-endian; packets carry
// no length or type prefix, the channel identifies the schema.
package protocol

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/banshee-data/luma/internal/detect"
	"github.com/banshee-data/luma/internal/imu"
)

// Packet sizes.
const (
	SamplePacketSize = 28
	EventPacketSize  = 5
)

// Channel is a logical wireless channel.
type Channel uint8

const (
	// Telemetry carries one sample packet per sampling tick (notify only).
	Telemetry Channel = iota + 1
	// Events carries event packets (notify only).
	Events
	// Commands carries remote commands to the helmet (write only).
	Commands
)

func (c Channel) String() string {
	switch c {
	case Telemetry:
		return "telemetry"
	case Events:
		return "events"
	case Commands:
		return "commands"
	default:
		return fmt.Sprintf("channel(%d)", uint8(c))
	}
}

// SamplePacket is the encoded form of one IMU sample.
type SamplePacket [SamplePacketSize]byte

// EventPacket is the encoded form of one detection.
type EventPacket [EventPacketSize]byte

// EncodeSample writes accel x/y/z, gyro x/y/z as float32 followed by the
// uint32 timestamp. The derived magnitude is not sent.
func EncodeSample(s imu.Sample) SamplePacket {
	var p SamplePacket
	le := binary.LittleEndian
	le.PutUint32(p[0:], math.Float32bits(s.AccelX))
	le.PutUint32(p[4:], math.Float32bits(s.AccelY))
	le.PutUint32(p[8:], math.Float32bits(s.AccelZ))
	le.PutUint32(p[12:], math.Float32bits(s.GyroX))
	le.PutUint32(p[16:], math.Float32bits(s.GyroY))
	le.PutUint32(p[20:], math.Float32bits(s.GyroZ))
	le.PutUint32(p[24:], s.Timestamp)
	return p
}

// DecodeSample parses a sample packet and recomputes the magnitude.
func DecodeSample(b []byte) (imu.Sample, error) {
	if len(b) != SamplePacketSize {
		return imu.Sample{}, fmt.Errorf("sample packet is %d bytes, want %d", len(b), SamplePacketSize)
	}
	le := binary.LittleEndian
	f := func(off int) float32 { return math.Float32frombits(le.Uint32(b[off:])) }
	return imu.NewSample(f(0), f(4), f(8), f(12), f(16), f(20), le.Uint32(b[24:])), nil
}

// EncodeEvent writes the class code followed by the float32 confidence.
func EncodeEvent(class detect.EventClass, confidence float32) EventPacket {
	var p EventPacket
	p[0] = byte(class)
	binary.LittleEndian.PutUint32(p[1:], math.Float32bits(confidence))
	return p
}

// DecodeEvent parses an event packet.
func DecodeEvent(b []byte) (detect.EventClass, float32, error) {
	if len(b) != EventPacketSize {
		return 0, 0, fmt.Errorf("event packet is %d bytes, want %d", len(b), EventPacketSize)
	}
	class := detect.EventClass(b[0])
	if !class.Valid() {
		return 0, 0, fmt.Errorf("unknown event class code %d", b[0])
	}
	return class, math.Float32frombits(binary.LittleEndian.Uint32(b[1:])), nil
}
