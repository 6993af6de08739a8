package pixeld

import (
	"gopkg.in/typ.v4/sync2"
)

// FrameHub fans frames out to subscribers. Publishing never blocks: a
// subscriber that is not ready misses the frame. Subscribers only observe
// frames; they cannot slow the strip down.
type FrameHub struct {
	subs sync2.Map[chan<- Frame, struct{}]
}

// Subscribe registers ch to receive published frames until unsubscribe is
// called.
func (h *FrameHub) Subscribe(ch chan<- Frame) (unsubscribe func()) {
	h.subs.Store(ch, struct{}{})
	return func() { h.subs.Delete(ch) }
}

// Publish sends f to every subscriber that is ready to receive it.
func (h *FrameHub) Publish(f Frame) {
	h.subs.Range(func(ch chan<- Frame, _ struct{}) bool {
		select {
		case ch <- f:
		default:
		}
		return true
	})
}
