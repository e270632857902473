package imu

// Frame is a chronological copy of a full window.
type Frame [WindowSize]Sample

// Window is a fixed-capacity ring of the most recent samples. It has a single
// owner; nothing in it is safe for concurrent use.
type Window struct {
	buf  [WindowSize]Sample
	next int
	full bool
}

// Push appends s, evicting the oldest sample once the ring has wrapped.
func (w *Window) Push(s Sample) {
	w.buf[w.next] = s
	w.next++
	if w.next == WindowSize {
		w.next = 0
		w.full = true
	}
}

// IsFull reports whether WindowSize samples have ever been pushed.
func (w *Window) IsFull() bool {
	return w.full
}

// Len returns the number of valid samples.
func (w *Window) Len() int {
	if w.full {
		return WindowSize
	}
	return w.next
}

// Latest returns the newest sample, or false when empty.
func (w *Window) Latest() (Sample, bool) {
	if w.Len() == 0 {
		return Sample{}, false
	}
	i := w.next - 1
	if i < 0 {
		i = WindowSize - 1
	}
	return w.buf[i], true
}

// Snapshot copies the valid samples into dst oldest first and returns how many
// were copied. Slots past the count are zeroed.
func (w *Window) Snapshot(dst *Frame) int {
	if !w.full {
		n := copy(dst[:], w.buf[:w.next])
		clear(dst[n:])
		return n
	}
	n := copy(dst[:], w.buf[w.next:])
	copy(dst[n:], w.buf[:w.next])
	return WindowSize
}
