// Package pattern computes strip contents from an animation phase.
//
// All arithmetic on positions, steps and offsets is done on uint8 values and
// wraps modulo 256. The resulting sequences are part of the visible behavior,
// so they must not be clamped or widened.
package pattern

import (
	"fmt"
	"strings"

	"dev.acmcsuf.com/pixeld/lib/xcolor"
)

// HueWheel maps a cyclic position to a color on a red, green, blue, red wheel.
// Position 0 is pure red, 85 is pure green and 170 is pure blue.
func HueWheel(pos uint8) xcolor.RGB {
	switch {
	case pos < 85:
		return xcolor.RGB{R: 255 - pos*3, G: pos * 3, B: 0}
	case pos < 170:
		pos -= 85
		return xcolor.RGB{R: 0, G: 255 - pos*3, B: pos * 3}
	default:
		pos -= 170
		return xcolor.RGB{R: pos * 3, G: 0, B: 255 - pos*3}
	}
}

// Kind is a display pattern.
type Kind uint8

const (
	Wave Kind = iota
	Solid
	Chase
	Sparkle
)

// StepsPerKind is the number of consecutive steps each pattern is shown for.
const StepsPerKind = 50

var kindNames = [...]string{
	Wave:    "wave",
	Solid:   "solid",
	Chase:   "chase",
	Sparkle: "sparkle",
}

// Kinds lists every pattern in selection order.
var Kinds = []Kind{Wave, Solid, Chase, Sparkle}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// ParseKind parses a pattern name as returned by Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(s, name) {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown pattern %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if int(k) >= len(kindNames) {
		return nil, fmt.Errorf("unknown pattern %d", uint8(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	v, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Select returns the pattern shown at the given step. Patterns are cycled in
// order, each for StepsPerKind steps.
func Select(step uint8) Kind {
	return Kind((step / StepsPerKind) % uint8(len(kindNames)))
}

// Render overwrites strip with the pattern's contents for the given phase.
func Render(strip []xcolor.RGB, kind Kind, step, offset uint8) {
	n := len(strip)
	if n == 0 {
		return
	}

	switch kind {
	case Wave:
		for i := range strip {
			strip[i] = HueWheel(offset + uint8(i*255/n))
		}
	case Solid:
		fill(strip, HueWheel(offset))
	case Chase:
		fill(strip, xcolor.Black)
		strip[int(step/5)%n] = HueWheel(offset)
	case Sparkle:
		fill(strip, xcolor.Black)
		strip[SparkleIndex(step, n)] = xcolor.White
	default:
		fill(strip, xcolor.Black)
	}
}

// SparkleIndex returns the lit LED of the sparkle pattern. The product is
// taken in 8 bits before reducing it to the strip length.
func SparkleIndex(step uint8, n int) int {
	return int(step*17) % n
}

func fill(strip []xcolor.RGB, c xcolor.RGB) {
	for i := range strip {
		strip[i] = c
	}
}
