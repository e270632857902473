package led

import (
	"fmt"
	"sync"
)

// Strip is a fixed-length chain of pixels. Show latches one full frame;
// len(pixels) always equals Len().
type Strip interface {
	Len() int
	Show(pixels []Color) error
}

// MemoryStrip is an in-memory Strip that keeps the most recent frame. It backs
// tests and headless runs.
type MemoryStrip struct {
	mu    sync.Mutex
	last  []Color
	shows int
}

// NewMemoryStrip returns a strip of n dark pixels.
func NewMemoryStrip(n int) *MemoryStrip {
	return &MemoryStrip{last: make([]Color, n)}
}

func (m *MemoryStrip) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.last)
}

func (m *MemoryStrip) Show(pixels []Color) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(pixels) != len(m.last) {
		return fmt.Errorf("frame has %d pixels, strip has %d", len(pixels), len(m.last))
	}
	copy(m.last, pixels)
	m.shows++
	return nil
}

// Frame returns a copy of the last frame shown.
func (m *MemoryStrip) Frame() []Color {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Color, len(m.last))
	copy(out, m.last)
	return out
}

// Shows returns how many frames have been latched.
func (m *MemoryStrip) Shows() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shows
}
