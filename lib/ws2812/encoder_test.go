package ws2812

import (
	"context"
	"sync"
	"testing"
	"time"

	"dev.acmcsuf.com/pixeld/lib/pixelfifo"
	"github.com/neilotoole/slogt"
)

// sliceSource hands out a fixed list of words and then blocks until the
// context is done, signalling drained when it first runs dry.
type sliceSource struct {
	mu      sync.Mutex
	words   []uint32
	drained chan struct{}
	once    sync.Once
}

func newSliceSource(words ...uint32) *sliceSource {
	return &sliceSource{
		words:   words,
		drained: make(chan struct{}),
	}
}

func (s *sliceSource) TryPull() (uint32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.words) == 0 {
		return 0, false
	}
	w := s.words[0]
	s.words = s.words[1:]
	return w, true
}

func (s *sliceSource) Pull(ctx context.Context) (uint32, error) {
	if w, ok := s.TryPull(); ok {
		return w, nil
	}
	s.once.Do(func() { close(s.drained) })
	<-ctx.Done()
	return 0, ctx.Err()
}

func startEncoder(t *testing.T, src Source, line Line) (*Encoder, context.CancelFunc) {
	t.Helper()

	enc, err := NewEncoder(EncoderOpts{
		Source: src,
		Line:   line,
		Logger: slogt.New(t),
	})
	if err != nil {
		t.Fatal("failed to create encoder:", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- enc.Run(ctx)
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			select {
			case err := <-errCh:
				if err != nil {
					t.Error("encoder error:", err)
				}
			case <-time.After(5 * time.Second):
				t.Error("encoder did not stop")
			}
		})
	}
	t.Cleanup(stop)

	return enc, stop
}

// encodeAll runs the encoder over words until it stalls on an empty source.
func encodeAll(t *testing.T, line Line, words ...uint32) *Encoder {
	t.Helper()

	src := newSliceSource(words...)
	enc, stop := startEncoder(t, src, line)

	select {
	case <-src.drained:
	case <-time.After(5 * time.Second):
		t.Fatal("encoder did not drain the source")
	}
	stop()

	return enc
}

func TestEncoderBitPeriod(t *testing.T) {
	var rec Recorder
	enc := encodeAll(t, &rec, 0xAAAAAA)
	timing := enc.Timing()

	pulses := rec.Pulses()
	if len(pulses) != 1+2*BitsPerWord {
		t.Fatalf("got %d pulses, want %d: %v", len(pulses), 1+2*BitsPerWord, pulses)
	}
	if pulses[0].High {
		t.Fatal("waveform does not start low")
	}

	// The low half of the last bit runs into the stall, so skip it.
	for bit := 0; bit < BitsPerWord-1; bit++ {
		high, low := pulses[1+2*bit], pulses[2+2*bit]
		if !high.High || low.High {
			t.Fatalf("bit %d: unexpected levels %v %v", bit, high, low)
		}

		one := bit%2 == 0
		wantHigh := timing.ZeroHigh
		if one {
			wantHigh = timing.OneHigh
		}
		if high.Duration != wantHigh {
			t.Errorf("bit %d (one=%v): high for %v, want %v", bit, one, high.Duration, wantHigh)
		}
		if period := high.Duration + low.Duration; period != timing.Period() {
			t.Errorf("bit %d (one=%v): period %v, want %v", bit, one, period, timing.Period())
		}
	}

	last := pulses[len(pulses)-1]
	if last.High {
		t.Error("line not held low after the last word")
	}

	stats := enc.Stats()
	assertEq(t, uint64(1), stats.Words)
	assertEq(t, uint64(BitsPerWord), stats.Bits)
}

func TestEncoderWordBoundariesInvisible(t *testing.T) {
	var rec Recorder
	enc := encodeAll(t, &rec, 0xFFFFFF, 0xFFFFFF)
	timing := enc.Timing()

	pulses := rec.Pulses()
	if len(pulses) != 1+2*2*BitsPerWord {
		t.Fatalf("got %d pulses, want %d", len(pulses), 1+2*2*BitsPerWord)
	}
	for i, p := range pulses[1 : len(pulses)-1] {
		want := timing.OneLow
		if p.High {
			want = timing.OneHigh
		}
		if p.Duration != want {
			t.Errorf("pulse %d: %v, want %v", i+1, p, want)
		}
	}
}

func TestEncoderDecoderRoundTrip(t *testing.T) {
	var mu sync.Mutex
	var got []uint32

	dec := NewDecoder(DecoderOpts{
		OnWord: func(word uint32) {
			mu.Lock()
			got = append(got, word)
			mu.Unlock()
		},
	})

	encodeAll(t, dec, 0x123456, 0xABCDEF, 0xFF00FF00, 0x000000, 0xFFFFFF)

	mu.Lock()
	defer mu.Unlock()

	// The high byte of a word is never sent.
	assertEq(t, []uint32{0x123456, 0xABCDEF, 0x00FF00, 0x000000, 0xFFFFFF}, got)
}

func TestEncoderLatch(t *testing.T) {
	words := make(chan uint32, 16)
	latches := make(chan []uint32, 4)

	dec := NewDecoder(DecoderOpts{
		OnWord: func(word uint32) { words <- word },
		OnLatch: func(frame []uint32) {
			latches <- append([]uint32(nil), frame...)
		},
	})

	fifo := pixelfifo.New(pixelfifo.DefaultDepth)
	enc, stop := startEncoder(t, fifo, dec)
	defer fifo.Close()

	recv := func(n int) []uint32 {
		t.Helper()
		var ws []uint32
		for len(ws) < n {
			select {
			case w := <-words:
				ws = append(ws, w)
			case <-time.After(5 * time.Second):
				t.Fatalf("received %d of %d words", len(ws), n)
			}
		}
		return ws
	}

	frameA := []uint32{0x010203, 0x040506}
	for _, w := range frameA {
		fifo.Push(w)
	}
	assertEq(t, frameA, recv(len(frameA)))

	select {
	case l := <-latches:
		t.Fatalf("latched %v before the reset period", l)
	default:
	}

	// The encoder stalls low for longer than the reset time.
	time.Sleep(10 * time.Millisecond)

	frameB := []uint32{0x0A0B0C}
	for _, w := range frameB {
		fifo.Push(w)
	}
	assertEq(t, frameB, recv(len(frameB)))

	select {
	case l := <-latches:
		assertEq(t, frameA, l)
	case <-time.After(5 * time.Second):
		t.Fatal("frame was not latched")
	}

	stop()

	assertEq(t, frameA, dec.Latched())
	assertEq(t, DecoderStats{Words: 3, Frames: 1}, dec.Stats())
	if enc.Stats().Stalls < 2 {
		t.Errorf("expected the encoder to stall at least twice, got %d", enc.Stats().Stalls)
	}
}

// wordTime is how long one word takes on the line at the default clock.
var wordTime = BitsPerWord * DefaultClockDivisor.Timing(DefaultSystemClockHz).Period()

func TestEncoderDrainRate(t *testing.T) {
	const words = 200
	const depth = pixelfifo.DefaultDepth

	fifo := pixelfifo.New(depth)
	defer fifo.Close()

	dec := NewDecoder(DecoderOpts{})
	startEncoder(t, fifo, dec)

	start := time.Now()
	for i := 0; i < words; i++ {
		fifo.Push(uint32(i))
	}
	took := time.Since(start)

	// The producer can only get ahead of the line by what the FIFO holds.
	if want := (words - depth - 1) * wordTime; took < want {
		t.Errorf("pushed %d words in %v, want at least %v", words, took, want)
	}
	if fifo.Stats().Waited == 0 {
		t.Error("producer never waited for the encoder")
	}
}

// spin waits for d without giving up the processor, since sleeps may
// overshoot by far more than the reset time.
func spin(d time.Duration) {
	for start := time.Now(); time.Since(start) < d; {
	}
}

func TestEncoderProducerGap(t *testing.T) {
	const n = 8

	latches := make(chan []uint32, 8)
	dec := NewDecoder(DecoderOpts{
		OnLatch: func(frame []uint32) {
			latches <- append([]uint32(nil), frame...)
		},
	})

	fifo := pixelfifo.New(pixelfifo.DefaultDepth)
	defer fifo.Close()
	startEncoder(t, fifo, dec)

	frame := func(k int) []uint32 {
		words := make([]uint32, n)
		for i := range words {
			words[i] = uint32(k<<8 | i)
		}
		return words
	}

	// Each frame is pushed in two halves with a pause longer than the reset
	// time in between. The queued half still covers the pause.
	for k := 0; k < 4; k++ {
		words := frame(k)
		for _, w := range words[:n/2] {
			fifo.Push(w)
		}
		spin(100 * time.Microsecond)
		for _, w := range words[n/2:] {
			fifo.Push(w)
		}
		time.Sleep(5 * time.Millisecond)
	}

	// The last frame latches only once another one starts.
	for k := 0; k < 3; k++ {
		select {
		case l := <-latches:
			assertEq(t, frame(k), l)
		case <-time.After(5 * time.Second):
			t.Fatalf("frame %d was not latched", k)
		}
	}

	assertEq(t, uint64(0), dec.Stats().Partial)
}

func TestStateMachineJumpDecrement(t *testing.T) {
	// out x, 4 side 0
	// loop:
	// jmp x-- loop side 1
	prog := Program{
		Instructions: []uint16{0x6024, 0x1041},
		WrapTarget:   0,
		Wrap:         1,
		SideSetBits:  1,
	}

	var rec Recorder
	src := newSliceSource(3)

	sm, err := NewStateMachine(StateMachineConfig{
		Program:       prog,
		Source:        src,
		Line:          &rec,
		PullThreshold: 4,
		ClockDivisor:  DefaultClockDivisor,
		SystemClockHz: DefaultSystemClockHz,
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sm.Run(ctx) }()

	<-src.drained
	cancel()
	<-done

	pulses := rec.Pulses()
	if len(pulses) < 2 {
		t.Fatalf("got %d pulses, want at least 2", len(pulses))
	}

	// x counts 3, 2, 1, 0 while the line is high. The stall that follows is
	// reported as one trailing low pulse.
	assertEq(t, []Pulse{
		{High: false, Duration: 125 * time.Nanosecond},
		{High: true, Duration: 4 * 125 * time.Nanosecond},
	}, pulses[:2])
}
