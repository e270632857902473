package led

import (
	"fmt"
	"io"

	"github.com/banshee-data/luma/internal/serialport"
)

// DefaultBrightness is the global brightness both firmware variants ship with.
const DefaultBrightness = 153

// AdalightStrip drives a USB LED controller speaking the Adalight protocol:
// "Ada", count-1 as hi/lo bytes, a hi^lo^0x55 checksum, then RGB triplets.
type AdalightStrip struct {
	w          io.Writer
	n          int
	brightness uint8
	frame      []byte
}

// NewAdalightStrip writes frames for n pixels to w, scaled by brightness.
func NewAdalightStrip(w io.Writer, n int, brightness uint8) (*AdalightStrip, error) {
	if n <= 0 || n > 65536 {
		return nil, fmt.Errorf("invalid LED count %d", n)
	}
	frame := make([]byte, 6+3*n)
	hi := byte((n - 1) >> 8)
	lo := byte((n - 1) & 0xff)
	copy(frame, []byte{'A', 'd', 'a', hi, lo, hi ^ lo ^ 0x55})
	return &AdalightStrip{w: w, n: n, brightness: brightness, frame: frame}, nil
}

// OpenAdalightStrip opens the controller's serial port.
func OpenAdalightStrip(path string, opts serialport.PortOptions, n int, brightness uint8) (*AdalightStrip, serialport.Porter, error) {
	port, err := serialport.Open(path, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open LED port %s: %w", path, err)
	}
	strip, err := NewAdalightStrip(port, n, brightness)
	if err != nil {
		port.Close()
		return nil, nil, err
	}
	return strip, port, nil
}

func (a *AdalightStrip) Len() int { return a.n }

func (a *AdalightStrip) Show(pixels []Color) error {
	if len(pixels) != a.n {
		return fmt.Errorf("frame has %d pixels, strip has %d", len(pixels), a.n)
	}
	body := a.frame[6:]
	for i, c := range pixels {
		c = c.Scale(a.brightness)
		body[3*i] = c.R
		body[3*i+1] = c.G
		body[3*i+2] = c.B
	}
	if _, err := a.w.Write(a.frame); err != nil {
		return fmt.Errorf("failed to write LED frame: %w", err)
	}
	return nil
}
