package ws2812

import (
	"sync"
	"time"
)

// Line is the output pin. Pulse is called with each completed run of a
// level. Consecutive calls may report the same level; they describe one
// continuous run.
type Line interface {
	Pulse(high bool, d time.Duration)
}

// Pulse is a run of one line level.
type Pulse struct {
	High     bool
	Duration time.Duration
}

// Recorder is a Line that keeps every pulse, merging consecutive runs of the
// same level the way an oscilloscope would show them.
type Recorder struct {
	mu     sync.Mutex
	pulses []Pulse
}

var _ Line = (*Recorder)(nil)

// Pulse implements Line.
func (r *Recorder) Pulse(high bool, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n := len(r.pulses); n > 0 && r.pulses[n-1].High == high {
		r.pulses[n-1].Duration += d
		return
	}
	r.pulses = append(r.pulses, Pulse{High: high, Duration: d})
}

// Pulses returns a copy of the recorded pulses.
func (r *Recorder) Pulses() []Pulse {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Pulse(nil), r.pulses...)
}
