package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"dev.acmcsuf.com/pixeld"
	"dev.acmcsuf.com/pixeld/lib/xcolor"
	"libdb.so/ledctl"
)

// RGBController is a controller for RGB LEDs.
type RGBController interface {
	SetRGBAt(i int, color ledctl.RGB)
	Flush() error
}

// WordSource is where the sink takes its words from. It is implemented by
// *pixelfifo.FIFO.
type WordSource interface {
	Pull(ctx context.Context) (uint32, error)
}

// ws281xSink drains the FIFO into the PWM/DMA peripheral. The peripheral
// generates the waveform itself, so the sink only regroups words into strip
// updates.
type ws281xSink struct {
	ctrl   RGBController
	source WordSource
	leds   int
	pin    int
	logger *slog.Logger
}

var ws281xConfig = ledctl.WS281xConfig{
	ColorOrder:   ledctl.BGROrder,
	ColorModel:   ledctl.RGBModel,
	PWMFrequency: 800000,
	DMAChannel:   10,
}

func newWS281xSink(cfg pixeld.Config, source WordSource, logger *slog.Logger) (*ws281xSink, error) {
	ws281xCfg := ws281xConfig
	ws281xCfg.NumPixels = cfg.StripLength
	ws281xCfg.GPIOPins = []int{cfg.OutputPin}

	ws281x, err := ledctl.NewWS281x(ws281xCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create a WS281x controller: %w", err)
	}

	return &ws281xSink{
		ctrl:   ws281x,
		source: source,
		leds:   cfg.StripLength,
		pin:    cfg.OutputPin,
		logger: logger,
	}, nil
}

func (s *ws281xSink) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx,
		"driving WS281x strip",
		"leds", s.leds,
		"pin", s.pin)

	for {
		for i := 0; i < s.leds; i++ {
			word, err := s.source.Pull(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
			s.ctrl.SetRGBAt(i, ledctl.RGB(xcolor.Unpack(word)))
		}

		if err := s.ctrl.Flush(); err != nil {
			s.logger.Error(
				"error writing LED strip",
				"error", err)
		}
	}
}
