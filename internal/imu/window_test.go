package imu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAt(ts uint32) Sample {
	return NewSample(0, 0, 1, 0, 0, 0, ts)
}

func TestWindow_FillsThenWraps(t *testing.T) {
	var w Window
	assert.False(t, w.IsFull())
	assert.Equal(t, 0, w.Len())
	_, ok := w.Latest()
	assert.False(t, ok)

	for i := 0; i < WindowSize-1; i++ {
		w.Push(sampleAt(uint32(i)))
	}
	assert.False(t, w.IsFull(), "one short of capacity")
	assert.Equal(t, WindowSize-1, w.Len())

	w.Push(sampleAt(uint32(WindowSize - 1)))
	assert.True(t, w.IsFull())
	assert.Equal(t, WindowSize, w.Len())

	latest, ok := w.Latest()
	require.True(t, ok)
	assert.Equal(t, uint32(WindowSize-1), latest.Timestamp)
}

func TestWindow_SnapshotIsChronological(t *testing.T) {
	var w Window
	const pushed = WindowSize + 37
	for i := 0; i < pushed; i++ {
		w.Push(sampleAt(uint32(i)))
	}

	var f Frame
	n := w.Snapshot(&f)
	require.Equal(t, WindowSize, n)
	for i := 0; i < WindowSize; i++ {
		want := uint32(pushed - WindowSize + i)
		if f[i].Timestamp != want {
			t.Fatalf("frame[%d].Timestamp = %d, want %d", i, f[i].Timestamp, want)
		}
	}
	assert.True(t, w.IsFull(), "full stays set after wrapping")
}

func TestWindow_PartialSnapshot(t *testing.T) {
	var w Window
	for i := 0; i < 10; i++ {
		w.Push(sampleAt(uint32(i + 100)))
	}

	var f Frame
	f[50] = sampleAt(12345)
	n := w.Snapshot(&f)
	assert.Equal(t, 10, n)
	assert.Equal(t, uint32(100), f[0].Timestamp)
	assert.Equal(t, uint32(109), f[9].Timestamp)
	assert.Equal(t, Sample{}, f[50], "slots past the count are cleared")
}

func TestWindow_SnapshotDoesNotAllocate(t *testing.T) {
	var w Window
	for i := 0; i < WindowSize*2; i++ {
		w.Push(sampleAt(uint32(i)))
	}
	var f Frame
	allocs := testing.AllocsPerRun(100, func() {
		w.Push(sampleAt(1))
		w.Snapshot(&f)
	})
	assert.Zero(t, allocs)
}
