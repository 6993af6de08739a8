package ws2812

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultResetTime is the shortest low period that latches a frame.
const DefaultResetTime = 50 * time.Microsecond

// DecoderOpts are options for a decoder.
type DecoderOpts struct {
	// Threshold separates bits: a high pulse longer than Threshold is a 1.
	// The zero value means DefaultClockDivisor's threshold at the default
	// system clock.
	Threshold time.Duration
	// ResetTime is the low period that latches the received words. The zero
	// value means DefaultResetTime.
	ResetTime time.Duration
	// OnWord, if not nil, is called with each received word.
	OnWord func(word uint32)
	// OnLatch, if not nil, is called with the words of each latched frame.
	// The slice must not be retained.
	OnLatch func(words []uint32)
}

// Decoder is a Line that behaves like the receiving end of a strip: it turns
// pulses back into 24-bit words and latches them once the line stays low for
// the reset time. Callbacks run on the goroutine driving the line.
type Decoder struct {
	opts DecoderOpts

	level   bool
	run     time.Duration
	started bool

	word  uint32
	nbits int
	frame []uint32

	latchedMu sync.Mutex
	latched   []uint32

	words   atomic.Uint64
	frames  atomic.Uint64
	partial atomic.Uint64
}

var _ Line = (*Decoder)(nil)

// DecoderStats is a snapshot of decoder counters.
type DecoderStats struct {
	Words  uint64 `json:"words"`
	Frames uint64 `json:"frames"`
	// Partial counts words cut short by a latch.
	Partial uint64 `json:"partial"`
}

// NewDecoder creates a new decoder.
func NewDecoder(opts DecoderOpts) *Decoder {
	if opts.Threshold == 0 {
		opts.Threshold = DefaultClockDivisor.Timing(DefaultSystemClockHz).Threshold()
	}
	if opts.ResetTime == 0 {
		opts.ResetTime = DefaultResetTime
	}
	return &Decoder{opts: opts}
}

// Pulse implements Line.
func (d *Decoder) Pulse(high bool, dur time.Duration) {
	if d.started && high == d.level {
		d.run += dur
		return
	}
	if d.started {
		d.endRun()
	}
	d.started = true
	d.level = high
	d.run = dur
}

func (d *Decoder) endRun() {
	if d.level {
		d.word <<= 1
		if d.run > d.opts.Threshold {
			d.word |= 1
		}
		d.nbits++
		if d.nbits == BitsPerWord {
			d.frame = append(d.frame, d.word)
			d.words.Add(1)
			if d.opts.OnWord != nil {
				d.opts.OnWord(d.word)
			}
			d.word = 0
			d.nbits = 0
		}
		return
	}

	if d.run >= d.opts.ResetTime {
		d.latch()
	}
}

func (d *Decoder) latch() {
	if d.nbits != 0 {
		d.partial.Add(1)
		d.word = 0
		d.nbits = 0
	}
	if len(d.frame) == 0 {
		return
	}

	d.frames.Add(1)

	d.latchedMu.Lock()
	d.latched = append(d.latched[:0], d.frame...)
	d.latchedMu.Unlock()

	if d.opts.OnLatch != nil {
		d.opts.OnLatch(d.frame)
	}
	d.frame = d.frame[:0]
}

// Latched returns a copy of the most recently latched frame.
func (d *Decoder) Latched() []uint32 {
	d.latchedMu.Lock()
	defer d.latchedMu.Unlock()

	return append([]uint32(nil), d.latched...)
}

// Stats returns a snapshot of the decoder counters.
func (d *Decoder) Stats() DecoderStats {
	return DecoderStats{
		Words:   d.words.Load(),
		Frames:  d.frames.Load(),
		Partial: d.partial.Load(),
	}
}
