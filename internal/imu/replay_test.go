package imu

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/luma/internal/timeutil"
)

const replayFixture = `timestamp_ms,accel_x,accel_y,accel_z,gyro_x,gyro_y,gyro_z
1000,0.0,0.0,1.0,0.0,0.0,0.0
1020,0.1,0.0,1.0,5.0,0.0,0.0
1040,0.0,0.2,1.1,0.0,-5.0,0.0
`

func readAll(t *testing.T, src Source, n int) []Sample {
	t.Helper()
	var out []Sample
	for i := 0; i < n; i++ {
		s, err := src.Read(context.Background())
		require.NoError(t, err)
		out = append(out, s)
	}
	return out
}

func TestReplaySource_ReadsRows(t *testing.T) {
	rs, err := NewReplaySource(strings.NewReader(replayFixture), ReplayOptions{})
	require.NoError(t, err)

	got := readAll(t, rs, 3)
	assert.Equal(t, NewSample(0.1, 0, 1, 5, 0, 0, 1020), got[1])
	assert.Equal(t, uint32(1040), got[2].Timestamp)

	_, err = rs.Read(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestReplaySource_LoopKeepsTimeMoving(t *testing.T) {
	rs, err := NewReplaySource(strings.NewReader(replayFixture), ReplayOptions{Loop: true})
	require.NoError(t, err)

	got := readAll(t, rs, 7)
	var ts []uint32
	for _, s := range got {
		ts = append(ts, s.Timestamp)
	}
	assert.Equal(t, []uint32{1000, 1020, 1040, 1060, 1080, 1100, 1120}, ts)
}

func TestReplaySource_HeaderInAnyOrderWithoutTimestamp(t *testing.T) {
	const csv = "gyro_z,gyro_y,gyro_x,accel_z,accel_y,accel_x\n3,2,1,0.9,0.1,0.2\n0,0,0,1,0,0\n"
	rs, err := NewReplaySource(strings.NewReader(csv), ReplayOptions{})
	require.NoError(t, err)

	got := readAll(t, rs, 2)
	assert.Equal(t, NewSample(0.2, 0.1, 0.9, 1, 2, 3, 0), got[0])
	assert.Equal(t, uint32(20), got[1].Timestamp)
}

func TestReplaySource_Errors(t *testing.T) {
	_, err := NewReplaySource(strings.NewReader("accel_x,accel_y\n1,2\n"), ReplayOptions{})
	assert.Error(t, err, "missing columns")

	rs, err := NewReplaySource(strings.NewReader("accel_x,accel_y,accel_z,gyro_x,gyro_y,gyro_z\n1,x,0,0,0,0\n"), ReplayOptions{})
	require.NoError(t, err)
	_, err = rs.Read(context.Background())
	assert.Error(t, err)
}

func TestReplaySource_PacedByClock(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	rs, err := NewReplaySource(strings.NewReader(replayFixture), ReplayOptions{
		Clock: clock,
		Stamp: func() uint32 { return 7 },
	})
	require.NoError(t, err)
	defer rs.Close()

	got := make(chan Sample, 1)
	go func() {
		s, _ := rs.Read(context.Background())
		got <- s
	}()

	select {
	case <-got:
		t.Fatal("read returned before the clock advanced")
	case <-time.After(20 * time.Millisecond):
	}

	clock.Advance(SampleInterval)
	select {
	case s := <-got:
		assert.Equal(t, uint32(7), s.Timestamp)
	case <-time.After(time.Second):
		t.Fatal("read did not return after a tick")
	}
}
