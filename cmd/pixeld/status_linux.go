//go:build linux

package main

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// gpioStatus blinks an LED on a GPIO line.
type gpioStatus struct {
	line  *gpiocdev.Line
	value int
}

func openGPIOStatus(chip string, offset int) (*gpioStatus, error) {
	line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("failed to request GPIO line %s:%d: %w", chip, offset, err)
	}
	return &gpioStatus{line: line}, nil
}

func (s *gpioStatus) Toggle() error {
	s.value ^= 1
	return s.line.SetValue(s.value)
}

func (s *gpioStatus) Close() error {
	if err := s.line.SetValue(0); err != nil {
		s.line.Close()
		return err
	}
	return s.line.Close()
}
