package pixeld

import (
	"testing"
	"time"

	"dev.acmcsuf.com/pixeld/lib/ws2812"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"empty strip", func(c *Config) { c.StripLength = 0 }, true},
		{"negative pin", func(c *Config) { c.OutputPin = -1 }, true},
		{"short delay", func(c *Config) { c.FrameDelay = time.Microsecond }, true},
		{"minimum delay", func(c *Config) { c.FrameDelay = MinFrameDelay }, false},
		{"zero divisor", func(c *Config) { c.ClockDivisor = ws2812.ClockDivisor{} }, true},
		{"no clock", func(c *Config) { c.SystemClockHz = 0 }, true},
		{"no FIFO", func(c *Config) { c.FIFODepth = 0 }, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := DefaultConfig()
			test.modify(&cfg)

			err := cfg.Validate()
			if (err != nil) != test.wantErr {
				t.Errorf("Validate() = %v, want error %v", err, test.wantErr)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assertEq(t, 8, cfg.StripLength)
	assertEq(t, 15, cfg.OutputPin)
	assertEq(t, 50*time.Millisecond, cfg.FrameDelay)
}
