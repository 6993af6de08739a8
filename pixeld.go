// Package pixeld drives a WS2812 LED strip: it renders animation frames, packs
// them into wire words and feeds them through a bounded FIFO to the encoder.
package pixeld

import (
	"errors"
	"fmt"
	"time"

	"dev.acmcsuf.com/pixeld/lib/pixelfifo"
	"dev.acmcsuf.com/pixeld/lib/ws2812"
)

// MinFrameDelay is the shortest pacing interval. The line must stay low for
// longer than the WS2812 reset time between frames for the strip to latch.
const MinFrameDelay = time.Millisecond

// Config is the startup configuration. It cannot be changed while running.
type Config struct {
	// StripLength is the number of LEDs on the strip.
	StripLength int
	// OutputPin is the GPIO the data line is attached to.
	OutputPin int
	// FrameDelay is the pause after each frame.
	FrameDelay time.Duration
	// ClockDivisor maps state machine cycles to absolute pulse durations.
	ClockDivisor ws2812.ClockDivisor
	// SystemClockHz is the clock divided by ClockDivisor.
	SystemClockHz uint32
	// FIFODepth is the number of words the FIFO holds.
	FIFODepth int
}

// DefaultConfig returns the default configuration: an 8 LED strip on GPIO 15
// updated 20 times a second.
func DefaultConfig() Config {
	return Config{
		StripLength:   8,
		OutputPin:     15,
		FrameDelay:    time.Second / 20,
		ClockDivisor:  ws2812.DefaultClockDivisor,
		SystemClockHz: ws2812.DefaultSystemClockHz,
		FIFODepth:     pixelfifo.DefaultDepth,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []error
	if c.StripLength < 1 {
		errs = append(errs, fmt.Errorf("strip length must be positive, got %d", c.StripLength))
	}
	if c.OutputPin < 0 {
		errs = append(errs, fmt.Errorf("invalid output pin %d", c.OutputPin))
	}
	if c.FrameDelay < MinFrameDelay {
		errs = append(errs, fmt.Errorf("frame delay %v is shorter than %v", c.FrameDelay, MinFrameDelay))
	}
	if err := c.ClockDivisor.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.SystemClockHz == 0 {
		errs = append(errs, errors.New("system clock must be positive"))
	}
	if c.FIFODepth < 1 {
		errs = append(errs, fmt.Errorf("FIFO depth must be positive, got %d", c.FIFODepth))
	}
	return errors.Join(errs...)
}
