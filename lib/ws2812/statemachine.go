package ws2812

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// Source feeds words to a state machine. It is implemented by
// *pixelfifo.FIFO.
type Source interface {
	// TryPull returns the next word if one is ready.
	TryPull() (uint32, bool)
	// Pull waits for the next word.
	Pull(ctx context.Context) (uint32, error)
}

// StateMachineConfig configures a StateMachine.
type StateMachineConfig struct {
	Program Program
	Source  Source
	Line    Line
	// PullThreshold is the number of bits shifted out before the output
	// shift register is refilled from Source. Words are left-aligned on
	// refill so their low PullThreshold bits are sent, most significant bit
	// first.
	PullThreshold uint8
	ClockDivisor  ClockDivisor
	SystemClockHz uint32
}

// StateMachine executes a PIO program with autopull and a single side-set
// pin. It is not safe for concurrent use, except for Stats.
type StateMachine struct {
	prog       []instruction
	wrapTarget uint8
	wrap       uint8
	threshold  uint8
	src        Source
	line       Line
	div        ClockDivisor
	sysHz      uint32

	pc       uint8
	x, y     uint32
	osr      uint32
	osrCount uint8
	level    bool
	held     int64
	stalled  time.Duration

	// anchor is the wall time at which elapsed cycles started counting.
	anchor  time.Time
	elapsed int64
	timer   *time.Timer

	words  atomic.Uint64
	bits   atomic.Uint64
	stalls atomic.Uint64
}

// Stats is a snapshot of state machine counters.
type Stats struct {
	Words  uint64 `json:"words"`
	Bits   uint64 `json:"bits"`
	Stalls uint64 `json:"stalls"`
}

// NewStateMachine decodes the program and returns a state machine ready to
// run from its first instruction with the line low.
func NewStateMachine(cfg StateMachineConfig) (*StateMachine, error) {
	prog, err := cfg.Program.decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode program: %w", err)
	}
	if cfg.PullThreshold == 0 || cfg.PullThreshold > 32 {
		return nil, fmt.Errorf("invalid pull threshold %d", cfg.PullThreshold)
	}
	if err := cfg.ClockDivisor.Validate(); err != nil {
		return nil, err
	}
	if cfg.SystemClockHz == 0 {
		return nil, fmt.Errorf("system clock must be positive")
	}
	if cfg.Source == nil || cfg.Line == nil {
		return nil, fmt.Errorf("source and line are required")
	}

	timer := time.NewTimer(time.Hour)
	timer.Stop()

	return &StateMachine{
		timer:      timer,
		prog:       prog,
		wrapTarget: cfg.Program.WrapTarget,
		wrap:       cfg.Program.Wrap,
		threshold:  cfg.PullThreshold,
		src:        cfg.Source,
		line:       cfg.Line,
		div:        cfg.ClockDivisor,
		sysHz:      cfg.SystemClockHz,
		osrCount:   cfg.PullThreshold, // empty
	}, nil
}

// Run executes instructions until ctx is done or the source fails. The
// current line level is reported before returning.
func (sm *StateMachine) Run(ctx context.Context) error {
	defer sm.flush()

	for {
		if err := sm.Step(ctx); err != nil {
			return err
		}
	}
}

// Step executes one instruction, including its delay cycles.
func (sm *StateMachine) Step(ctx context.Context) error {
	in := sm.prog[sm.pc]

	// Side-set takes effect even if the instruction stalls.
	sm.setLevel(in.sideSet&1 == 1)

	next := sm.pc + 1
	if sm.pc == sm.wrap {
		next = sm.wrapTarget
	}

	switch in.op {
	case opJMP:
		if sm.condition(in.cond) {
			next = in.addr
		}

	case opOUT:
		if sm.osrCount >= sm.threshold {
			if err := sm.pull(ctx); err != nil {
				return err
			}
		}
		v := sm.shiftOut(in.count)
		switch in.dest {
		case regX:
			sm.x = v
		case regY:
			sm.y = v
		}
		sm.bits.Add(uint64(in.count))

	case opMOV:
		var v uint32
		switch in.src {
		case regX:
			v = sm.x
		case regY:
			v = sm.y
		case regOSR:
			v = sm.osr
		}
		if in.invert {
			v = ^v
		}
		switch in.dest {
		case regX:
			sm.x = v
		case regY:
			sm.y = v
		}
	}

	sm.held += 1 + int64(in.delay)
	sm.elapsed += 1 + int64(in.delay)
	sm.pc = next
	return nil
}

func (sm *StateMachine) condition(cond uint8) bool {
	switch cond {
	case condAlways:
		return true
	case condXZero:
		return sm.x == 0
	case condXDec:
		ok := sm.x != 0
		sm.x--
		return ok
	case condYZero:
		return sm.y == 0
	case condYDec:
		ok := sm.y != 0
		sm.y--
		return ok
	case condXNotY:
		return sm.x != sm.y
	case condOSRValid:
		return sm.osrCount < sm.threshold
	default:
		return false
	}
}

// shiftOut shifts n bits out of the left of the output shift register.
func (sm *StateMachine) shiftOut(n uint8) uint32 {
	if n >= 32 {
		v := sm.osr
		sm.osr = 0
		sm.osrCount = 32
		return v
	}
	v := sm.osr >> (32 - n)
	sm.osr <<= n
	sm.osrCount += n
	return v
}

// pull refills the output shift register. Pulls are paced against wall time
// so that words leave the source no faster than the line can send them. If
// the source is empty the line keeps its level for as long as the state
// machine waits.
func (sm *StateMachine) pull(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if sm.anchor.IsZero() {
		sm.anchor = time.Now()
		sm.elapsed = 0
	}

	if err := sm.pace(ctx); err != nil {
		return err
	}
	if sm.elapsed > 1<<32 {
		sm.anchor = sm.anchor.Add(sm.div.Cycles(sm.elapsed, sm.sysHz))
		sm.elapsed = 0
	}

	word, ok := sm.src.TryPull()
	if !ok {
		sm.stalls.Add(1)
		sm.flush()

		// Only the time spent waiting past the simulated clock holds the
		// line. The clock restarts when the word arrives.
		start := time.Now()

		var err error
		word, err = sm.src.Pull(ctx)

		now := time.Now()
		sm.stalled += now.Sub(start)
		sm.anchor = now
		sm.elapsed = 0

		if err != nil {
			return err
		}
	}

	sm.osr = word << (32 - sm.threshold)
	sm.osrCount = 0
	sm.words.Add(1)
	return nil
}

// pace waits until wall time reaches the simulated time of the current
// cycle. A state machine that has fallen behind does not wait.
func (sm *StateMachine) pace(ctx context.Context) error {
	d := time.Until(sm.anchor.Add(sm.div.Cycles(sm.elapsed, sm.sysHz)))
	if d <= 0 {
		return nil
	}

	sm.timer.Reset(d)
	select {
	case <-ctx.Done():
		if !sm.timer.Stop() {
			<-sm.timer.C
		}
		return ctx.Err()
	case <-sm.timer.C:
		return nil
	}
}

func (sm *StateMachine) setLevel(high bool) {
	if high != sm.level {
		sm.flush()
		sm.level = high
	}
}

// flush reports the run of the current level accumulated so far.
func (sm *StateMachine) flush() {
	d := sm.div.Cycles(sm.held, sm.sysHz) + sm.stalled
	sm.held = 0
	sm.stalled = 0
	if d > 0 {
		sm.line.Pulse(sm.level, d)
	}
}

// Stats returns a snapshot of the state machine counters.
func (sm *StateMachine) Stats() Stats {
	return Stats{
		Words:  sm.words.Load(),
		Bits:   sm.bits.Load(),
		Stalls: sm.stalls.Load(),
	}
}
