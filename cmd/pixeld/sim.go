package main

import (
	"context"
	"fmt"
	"log/slog"

	"dev.acmcsuf.com/pixeld"
	"dev.acmcsuf.com/pixeld/lib/pixelfifo"
	"dev.acmcsuf.com/pixeld/lib/ws2812"
	"dev.acmcsuf.com/pixeld/lib/xcolor"
)

// simOutput runs the encoder into a simulated strip.
type simOutput struct {
	encoder *ws2812.Encoder
	decoder *ws2812.Decoder
	logger  *slog.Logger
}

func newSimOutput(cfg pixeld.Config, fifo *pixelfifo.FIFO, logger *slog.Logger) (*simOutput, error) {
	sim := &simOutput{logger: logger}

	timing := cfg.ClockDivisor.Timing(cfg.SystemClockHz)
	sim.decoder = ws2812.NewDecoder(ws2812.DecoderOpts{
		Threshold: timing.Threshold(),
		OnLatch:   sim.onLatch,
	})

	encoder, err := ws2812.NewEncoder(ws2812.EncoderOpts{
		Source:        fifo,
		Line:          sim.decoder,
		ClockDivisor:  cfg.ClockDivisor,
		SystemClockHz: cfg.SystemClockHz,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}
	sim.encoder = encoder

	return sim, nil
}

func (s *simOutput) Run(ctx context.Context) error {
	return s.encoder.Run(ctx)
}

func (s *simOutput) onLatch(words []uint32) {
	if !s.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	colors := make([]string, len(words))
	for i, w := range words {
		colors[i] = xcolor.Unpack(w).String()
	}

	s.logger.Debug(
		"simulated strip latched",
		"leds", colors)
}
