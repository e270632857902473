package protocol

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/luma/internal/detect"
	"github.com/banshee-data/luma/internal/imu"
)

func TestEncodeSample_Layout(t *testing.T) {
	s := imu.NewSample(1.0, -2.0, 0.5, 0, 100, -0.25, 0x01020304)
	got := EncodeSample(s)

	want := SamplePacket{
		0x00, 0x00, 0x80, 0x3F, // 1.0
		0x00, 0x00, 0x00, 0xC0, // -2.0
		0x00, 0x00, 0x00, 0x3F, // 0.5
		0x00, 0x00, 0x00, 0x00, // 0
		0x00, 0x00, 0xC8, 0x42, // 100
		0x00, 0x00, 0x80, 0xBE, // -0.25
		0x04, 0x03, 0x02, 0x01, // timestamp
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sample packet mismatch (-want +got):\n%s", diff)
	}

	back, err := DecodeSample(got[:])
	require.NoError(t, err)
	assert.Equal(t, s, back)
}

func TestEncodeEvent_Layout(t *testing.T) {
	got := EncodeEvent(detect.Crash, 0.75)
	assert.Equal(t, EventPacket{0x02, 0x00, 0x00, 0x40, 0x3F}, got)

	class, conf, err := DecodeEvent(got[:])
	require.NoError(t, err)
	assert.Equal(t, detect.Crash, class)
	assert.Equal(t, float32(0.75), conf)
}

func TestDecode_Errors(t *testing.T) {
	_, err := DecodeSample(make([]byte, 27))
	assert.Error(t, err)

	_, _, err = DecodeEvent(make([]byte, 4))
	assert.Error(t, err)

	_, _, err = DecodeEvent([]byte{9, 0, 0, 0, 0})
	assert.Error(t, err)
}

func TestChannelString(t *testing.T) {
	assert.Equal(t, "telemetry", Telemetry.String())
	assert.Equal(t, "events", Events.String())
	assert.Equal(t, "commands", Commands.String())
	assert.Equal(t, "channel(9)", Channel(9).String())
}
