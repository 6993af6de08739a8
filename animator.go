package pixeld

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"dev.acmcsuf.com/pixeld/lib/pattern"
	"dev.acmcsuf.com/pixeld/lib/xcolor"
)

// WordPusher accepts wire words, blocking while it is full. It is implemented
// by *pixelfifo.FIFO.
type WordPusher interface {
	Push(word uint32)
}

// State is the animation phase. Both counters wrap around.
type State struct {
	Step   uint8 `json:"step"`
	Offset uint8 `json:"offset"`
}

// HueStepInterval is the number of steps between hue offset advances.
const HueStepInterval = 4

// HueStep is how far the hue offset advances at a time.
const HueStep = 8

// Next returns the state of the following frame.
func (s State) Next() State {
	s.Step++
	if s.Step%HueStepInterval == 0 {
		s.Offset += HueStep
	}
	return s
}

// AnimatorOpts are options for an animator.
type AnimatorOpts struct {
	// StripLength is the number of LEDs on the strip.
	StripLength int
	// Output receives each frame's words in strip order.
	Output WordPusher
	// FrameDelay is the pause after each frame.
	FrameDelay time.Duration
	// Status is toggled after every frame. It may be nil.
	Status StatusIndicator
	// Pattern, if not nil, pins the animation to one pattern instead of
	// cycling through all of them.
	Pattern *pattern.Kind
	// Initial is the state of the first frame.
	Initial State
	// Hub, if not nil, receives every frame after it is pushed.
	Hub *FrameHub
	// Logger is the logger to use for the animator.
	Logger *slog.Logger
}

// Animator is the frame loop. It renders the current pattern, pushes the
// packed colors to the output and advances the animation state.
type Animator struct {
	opts  AnimatorOpts
	strip []xcolor.RGB
	state State

	seq  atomic.Uint64
	last atomic.Pointer[Frame]
}

// NewAnimator creates a new animator.
func NewAnimator(opts AnimatorOpts) (*Animator, error) {
	if opts.StripLength < 1 {
		return nil, fmt.Errorf("strip length must be positive, got %d", opts.StripLength)
	}
	if opts.Output == nil {
		return nil, fmt.Errorf("no output")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Animator{
		opts:  opts,
		strip: make([]xcolor.RGB, opts.StripLength),
		state: opts.Initial,
	}, nil
}

// Run runs frames until ctx is done, pausing FrameDelay after each one. It
// only returns ctx's error.
func (a *Animator) Run(ctx context.Context) error {
	a.opts.Logger.InfoContext(ctx,
		"starting frame loop",
		"leds", len(a.strip),
		"frame_delay", a.opts.FrameDelay)

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		a.Frame(ctx)

		timer.Reset(a.opts.FrameDelay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Frame runs a single frame without the pause and returns what was sent. It
// must not be called concurrently with itself or Run.
func (a *Animator) Frame(ctx context.Context) Frame {
	state := a.state

	kind := pattern.Select(state.Step)
	if a.opts.Pattern != nil {
		kind = *a.opts.Pattern
	}
	pattern.Render(a.strip, kind, state.Step, state.Offset)

	frame := Frame{
		Seq:     a.seq.Add(1),
		Step:    state.Step,
		Offset:  state.Offset,
		Pattern: kind,
		Words:   make([]uint32, len(a.strip)),
	}

	for i, c := range a.strip {
		word := xcolor.Pack(c)
		frame.Words[i] = word
		a.opts.Output.Push(word)
	}

	a.state = state.Next()

	if a.opts.Status != nil {
		if err := a.opts.Status.Toggle(); err != nil {
			a.opts.Logger.WarnContext(ctx,
				"failed to toggle status indicator",
				"error", err)
		}
	}

	a.last.Store(&frame)
	if a.opts.Hub != nil {
		a.opts.Hub.Publish(frame)
	}

	return frame
}

// LastFrame returns the most recently sent frame.
func (a *Animator) LastFrame() (Frame, bool) {
	f := a.last.Load()
	if f == nil {
		return Frame{}, false
	}
	return *f, true
}

// Frames returns the number of frames sent so far.
func (a *Animator) Frames() uint64 {
	return a.seq.Load()
}
