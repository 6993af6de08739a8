package ws2812

import (
	"fmt"
	"math"
	"time"
)

// DefaultSystemClockHz is the RP2040 system clock after PLL bring-up.
const DefaultSystemClockHz = 125_000_000

// DefaultBitRate is the WS2812 data rate of 800 kbit/s.
const DefaultBitRate = 800_000

// ClockDivisor slows the state machine clock down from the system clock. It is
// a fixed point number, Int + Frac/256, like the RP2040 CLKDIV register.
type ClockDivisor struct {
	Int  uint16
	Frac uint8
}

// DefaultClockDivisor runs one bit per 1.25µs at the default system clock.
var DefaultClockDivisor = ClockDivisor{Int: 15, Frac: 160}

// ClockDivisorForBitRate returns the divisor that makes one WS2812 bit last
// 1/bitHz seconds.
func ClockDivisorForBitRate(bitHz, sysHz uint32) (ClockDivisor, error) {
	if bitHz == 0 || sysHz == 0 {
		return ClockDivisor{}, fmt.Errorf("clock rates must be positive")
	}

	cycleHz := uint64(bitHz) * CyclesPerBit
	div := (uint64(sysHz)*256 + cycleHz/2) / cycleHz

	return clockDivisorFromFixed(div)
}

// ParseClockDivisor converts a floating point divisor in [1, 65536).
func ParseClockDivisor(f float64) (ClockDivisor, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return ClockDivisor{}, fmt.Errorf("invalid clock divisor %g", f)
	}
	return clockDivisorFromFixed(uint64(math.Round(f * 256)))
}

func clockDivisorFromFixed(div uint64) (ClockDivisor, error) {
	if div < 256 || div >= 65536*256 {
		return ClockDivisor{}, fmt.Errorf("clock divisor %g out of range [1, 65536)", float64(div)/256)
	}
	return ClockDivisor{Int: uint16(div >> 8), Frac: uint8(div)}, nil
}

// Validate reports whether the divisor can be programmed.
func (d ClockDivisor) Validate() error {
	if d.Int == 0 {
		return fmt.Errorf("clock divisor %g out of range [1, 65536)", d.Float())
	}
	return nil
}

// Float returns the divisor as a floating point number.
func (d ClockDivisor) Float() float64 {
	return float64(d.fixed()) / 256
}

func (d ClockDivisor) String() string {
	return fmt.Sprintf("%g", d.Float())
}

func (d ClockDivisor) fixed() uint64 {
	return uint64(d.Int)<<8 | uint64(d.Frac)
}

// CyclePeriod returns the duration of one state machine cycle, truncated to
// the nanosecond.
func (d ClockDivisor) CyclePeriod(sysHz uint32) time.Duration {
	return d.Cycles(1, sysHz)
}

// Cycles returns the duration of n state machine cycles.
func (d ClockDivisor) Cycles(n int64, sysHz uint32) time.Duration {
	if sysHz == 0 {
		return 0
	}
	// Picoseconds keep fractional divisors exact enough over long runs.
	ps := d.fixed() * 1e12 / (256 * uint64(sysHz))
	return time.Duration(uint64(n) * ps / 1000)
}

// BitTiming is the pulse shape of each bit value.
type BitTiming struct {
	ZeroHigh time.Duration `json:"zero_high"`
	ZeroLow  time.Duration `json:"zero_low"`
	OneHigh  time.Duration `json:"one_high"`
	OneLow   time.Duration `json:"one_low"`
}

// Timing returns the pulse shapes produced by WS2812Program at the divisor.
func (d ClockDivisor) Timing(sysHz uint32) BitTiming {
	return BitTiming{
		ZeroHigh: d.Cycles(T1, sysHz),
		ZeroLow:  d.Cycles(T2+T3, sysHz),
		OneHigh:  d.Cycles(T1+T2, sysHz),
		OneLow:   d.Cycles(T3, sysHz),
	}
}

// Period returns the bit period. Both bit values share it.
func (t BitTiming) Period() time.Duration {
	return t.OneHigh + t.OneLow
}

// Threshold returns the high pulse width separating a 0 bit from a 1 bit.
func (t BitTiming) Threshold() time.Duration {
	return (t.ZeroHigh + t.OneHigh) / 2
}
