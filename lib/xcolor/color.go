// Package xcolor contains the pixel color type and its WS2812 wire packing.
package xcolor

import "fmt"

// RGB is a single pixel color. Each channel is a full 8-bit intensity.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Named colors.
var (
	Black   = RGB{0, 0, 0}
	Red     = RGB{255, 0, 0}
	Green   = RGB{0, 255, 0}
	Blue    = RGB{0, 0, 255}
	White   = RGB{255, 255, 255}
	Yellow  = RGB{255, 255, 0}
	Cyan    = RGB{0, 255, 255}
	Magenta = RGB{255, 0, 255}
)

// Pack packs the color into a wire word. The word holds the channels in GRB
// order in its low 24 bits:
//
//	word = g<<16 | r<<8 | b
func Pack(c RGB) uint32 {
	return uint32(c.G)<<16 | uint32(c.R)<<8 | uint32(c.B)
}

// Pack is a convenience method for Pack(c).
func (c RGB) Pack() uint32 {
	return Pack(c)
}

// Unpack is the inverse of Pack. The high 8 bits of word are ignored.
func Unpack(word uint32) RGB {
	return RGB{
		R: uint8(word >> 8),
		G: uint8(word >> 16),
		B: uint8(word),
	}
}

// String returns the color in #rrggbb notation.
func (c RGB) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
