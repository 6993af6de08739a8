// Package pixelfifo implements the bounded word queue between the frame
// producer and the timing encoder. It mirrors a PIO TX FIFO: a producer that
// finds the queue full waits until the encoder has drained a word, and words
// are never dropped or reordered.
package pixelfifo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Pull once the FIFO has been closed.
var ErrClosed = errors.New("pixelfifo: closed")

// DefaultDepth is the depth of an RP2040 TX FIFO joined with its RX FIFO.
const DefaultDepth = 8

// FIFO is a single-producer, single-consumer queue of wire words.
type FIFO struct {
	words chan uint32
	done  chan struct{}
	once  sync.Once

	pushed  atomic.Uint64
	pulled  atomic.Uint64
	waited  atomic.Uint64
	dropped atomic.Uint64
}

// Stats is a snapshot of FIFO counters.
type Stats struct {
	Depth  int    `json:"depth"`
	Queued int    `json:"queued"`
	Pushed uint64 `json:"pushed"`
	Pulled uint64 `json:"pulled"`
	// Waited counts the pushes that found the FIFO full.
	Waited uint64 `json:"waited"`
	// Dropped counts the pushes discarded after Close.
	Dropped uint64 `json:"dropped"`
}

// New creates a FIFO holding up to depth words. It panics if depth < 1.
func New(depth int) *FIFO {
	if depth < 1 {
		panic("pixelfifo: depth must be positive")
	}
	return &FIFO{
		words: make(chan uint32, depth),
		done:  make(chan struct{}),
	}
}

// TryPush enqueues word if there is room and reports whether it did. After
// Close the word is discarded and TryPush reports true.
func (f *FIFO) TryPush(word uint32) bool {
	select {
	case <-f.done:
		f.dropped.Add(1)
		return true
	default:
	}

	select {
	case f.words <- word:
		f.pushed.Add(1)
		return true
	default:
		return false
	}
}

// Push enqueues word, waiting for as long as the FIFO is full. There is no
// timeout; the producer is throttled to the consumer's drain rate.
//
// After Close, Push discards the word and returns immediately.
func (f *FIFO) Push(word uint32) {
	if f.TryPush(word) {
		return
	}

	f.waited.Add(1)

	select {
	case f.words <- word:
		f.pushed.Add(1)
	case <-f.done:
		f.dropped.Add(1)
	}
}

// TryPull dequeues the oldest word if there is one. Only the encoder may call
// TryPull.
func (f *FIFO) TryPull() (uint32, bool) {
	select {
	case word := <-f.words:
		f.pulled.Add(1)
		return word, true
	default:
		return 0, false
	}
}

// Pull dequeues the oldest word, waiting while the FIFO is empty. Only the
// consumer may call Pull.
func (f *FIFO) Pull(ctx context.Context) (uint32, error) {
	// Words queued before Close are still handed out in order.
	if word, ok := f.TryPull(); ok {
		return word, nil
	}

	select {
	case word := <-f.words:
		f.pulled.Add(1)
		return word, nil
	case <-f.done:
		return 0, ErrClosed
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Close releases any blocked producer. It is meant for process teardown and
// is safe to call more than once.
func (f *FIFO) Close() {
	f.once.Do(func() { close(f.done) })
}

// Len returns the number of queued words.
func (f *FIFO) Len() int { return len(f.words) }

// Cap returns the FIFO depth.
func (f *FIFO) Cap() int { return cap(f.words) }

// Stats returns a snapshot of the FIFO counters.
func (f *FIFO) Stats() Stats {
	return Stats{
		Depth:   f.Cap(),
		Queued:  f.Len(),
		Pushed:  f.pushed.Load(),
		Pulled:  f.pulled.Load(),
		Waited:  f.waited.Load(),
		Dropped: f.dropped.Load(),
	}
}
