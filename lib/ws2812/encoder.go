package ws2812

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
)

// EncoderOpts are options for an encoder.
type EncoderOpts struct {
	// Source supplies the wire words to send.
	Source Source
	// Line receives the generated waveform.
	Line Line
	// ClockDivisor sets the absolute pulse durations. The zero value means
	// DefaultClockDivisor.
	ClockDivisor ClockDivisor
	// SystemClockHz is the clock the divisor divides. Zero means
	// DefaultSystemClockHz.
	SystemClockHz uint32
	// Logger is the logger to use for the encoder.
	Logger *slog.Logger
}

// Encoder serializes wire words into the WS2812 waveform. It runs
// WS2812Program with a 24-bit autopull.
type Encoder struct {
	sm     *StateMachine
	timing BitTiming
	logger *slog.Logger
}

// NewEncoder creates a new encoder.
func NewEncoder(opts EncoderOpts) (*Encoder, error) {
	if opts.ClockDivisor == (ClockDivisor{}) {
		opts.ClockDivisor = DefaultClockDivisor
	}
	if opts.SystemClockHz == 0 {
		opts.SystemClockHz = DefaultSystemClockHz
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	sm, err := NewStateMachine(StateMachineConfig{
		Program:       WS2812Program,
		Source:        opts.Source,
		Line:          opts.Line,
		PullThreshold: BitsPerWord,
		ClockDivisor:  opts.ClockDivisor,
		SystemClockHz: opts.SystemClockHz,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to install WS2812 program: %w", err)
	}

	return &Encoder{
		sm:     sm,
		timing: opts.ClockDivisor.Timing(opts.SystemClockHz),
		logger: opts.Logger,
	}, nil
}

// Timing returns the pulse shapes the encoder produces.
func (e *Encoder) Timing() BitTiming {
	return e.timing
}

// Run runs the encoder until ctx is done. The calling goroutine is locked to
// its OS thread for the lifetime of the encoder and nothing else may run on
// it. A nil error is returned on cancellation.
func (e *Encoder) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	e.logger.InfoContext(ctx,
		"WS2812 encoder running",
		"bit_period", e.timing.Period(),
		"one_high", e.timing.OneHigh,
		"zero_high", e.timing.ZeroHigh)

	err := e.sm.Run(ctx)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}

	e.logger.DebugContext(ctx,
		"WS2812 encoder stopped",
		"words", e.sm.Stats().Words)

	return err
}

// Stats returns a snapshot of the encoder counters.
func (e *Encoder) Stats() Stats {
	return e.sm.Stats()
}
