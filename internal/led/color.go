// Package led drives the helmet's addressable LED strip: the pattern state
// machine, its per-pattern animations and the physical strip transports.
package led

import "math"

// Color is one 8-bit RGB pixel.
type Color struct {
	R, G, B uint8
}

var (
	Black = Color{}
	Red   = Color{R: 255}
	Amber = Color{R: 255, G: 165}
)

// Scale multiplies each channel by (brightness+1)/256, the same fixed-point
// scaling the strip driver applies on the device.
func (c Color) Scale(brightness uint8) Color {
	b := uint16(brightness) + 1
	return Color{
		R: uint8((uint16(c.R) * b) >> 8),
		G: uint8((uint16(c.G) * b) >> 8),
		B: uint8((uint16(c.B) * b) >> 8),
	}
}

var gammaTable = func() (t [256]uint8) {
	for i := range t {
		t[i] = uint8(math.Pow(float64(i)/255, 2.6)*255 + 0.5)
	}
	return t
}()

// Gamma8 applies the strip's 2.6 gamma curve to a single channel.
func Gamma8(v uint8) uint8 {
	return gammaTable[v]
}

// Gamma applies Gamma8 to every channel.
func (c Color) Gamma() Color {
	return Color{R: gammaTable[c.R], G: gammaTable[c.G], B: gammaTable[c.B]}
}

// HSV converts a 16-bit hue (a full turn is 65536) with saturation and value
// to RGB. The hue circle is walked in 1530 steps, red-yellow-green-cyan-
// blue-magenta-red, matching the NeoPixel reference conversion.
func HSV(hue uint16, sat, val uint8) Color {
	h := (uint32(hue)*1530 + 32768) / 65536
	var r, g, b uint32
	switch {
	case h < 255:
		r, g, b = 255, h, 0
	case h < 510:
		r, g, b = 510-h, 255, 0
	case h < 765:
		r, g, b = 0, 255, h-510
	case h < 1020:
		r, g, b = 0, 1020-h, 255
	case h < 1275:
		r, g, b = h-1020, 0, 255
	case h < 1530:
		r, g, b = 255, 0, 1530-h
	default:
		r, g, b = 255, 0, 0
	}

	v1 := uint32(val) + 1
	s1 := uint32(sat) + 1
	s2 := 255 - uint32(sat)
	apply := func(ch uint32) uint8 {
		return uint8(((((ch * s1) >> 8) + s2) * v1) >> 8)
	}
	return Color{R: apply(r), G: apply(g), B: apply(b)}
}
