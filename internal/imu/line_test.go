package imu

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/luma/internal/serialport"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		want        Sample
		wantStamped bool
		wantErr     bool
		wantSkip    bool
	}{
		{
			name:        "csv with timestamp",
			line:        "0.01,-0.02,0.99,1.5,-2.5,0.25,12345",
			want:        NewSample(0.01, -0.02, 0.99, 1.5, -2.5, 0.25, 12345),
			wantStamped: true,
		},
		{
			name: "csv without timestamp",
			line: " 0, 0, 1, 0, 0, 0 ",
			want: NewSample(0, 0, 1, 0, 0, 0, 0),
		},
		{
			name: "register frame",
			line: "MPU:100000000000abcd000000000000",
			want: NewSample(1, 0, 0, 0, 0, 0, 0),
		},
		{name: "blank", line: "   ", wantSkip: true},
		{name: "comment", line: "# imu bridge v2", wantSkip: true},
		{name: "too few fields", line: "1,2,3", wantErr: true},
		{name: "not a number", line: "a,0,1,0,0,0", wantErr: true},
		{name: "bad timestamp", line: "0,0,1,0,0,0,-5", wantErr: true},
		{name: "short register frame", line: "MPU:1000", wantErr: true},
		{name: "bad hex", line: "MPU:zz0000000000abcd000000000000", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, stamped, err := ParseLine(tt.line)
			switch {
			case tt.wantSkip:
				assert.ErrorIs(t, err, errSkipLine)
			case tt.wantErr:
				assert.Error(t, err)
				assert.NotErrorIs(t, err, errSkipLine)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				assert.Equal(t, tt.wantStamped, stamped)
			}
		})
	}
}

func TestLineSource_ReadsFromPort(t *testing.T) {
	port := serialport.NewTestablePort()
	var clock uint32 = 500
	src := NewLineSource(port, func() uint32 { clock += 20; return clock })
	defer src.Close()

	port.AddReadData([]byte("# boot\n0,0,1,0,0,0\ngarbage\n0,0,2,0,0,0,1\n"))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	s, err := src.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, NewSample(0, 0, 1, 0, 0, 0, 520), s)

	_, err = src.Read(ctx)
	assert.Error(t, err, "malformed line surfaces so the guard can substitute")

	s, err = src.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(540), s.Timestamp, "stamp func overrides line timestamps")
	assert.InDelta(t, 2.0, s.AccelMag, 1e-6)
}

func TestLineSource_RequiresTimestampWithoutStamp(t *testing.T) {
	src := NewLineSource(strings.NewReader("0,0,1,0,0,0\n0,0,1,0,0,0,40\n"), nil)
	ctx := context.Background()

	_, err := src.Read(ctx)
	assert.Error(t, err)

	s, err := src.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(40), s.Timestamp)

	_, err = src.Read(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestLineSource_HonoursContext(t *testing.T) {
	port := serialport.NewTestablePort()
	src := NewLineSource(port, nil)
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.Read(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
