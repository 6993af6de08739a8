package ws2812

import "fmt"

// Bit timing of the WS2812 program, in state machine cycles.
const (
	T1 = 2
	T2 = 5
	T3 = 3

	// CyclesPerBit is the total period of one bit, regardless of its value.
	CyclesPerBit = T1 + T2 + T3
)

// BitsPerWord is the autopull threshold: one GRB pixel.
const BitsPerWord = 24

// Program is a PIO program assembled at origin 0.
type Program struct {
	Instructions []uint16
	// WrapTarget and Wrap bound the implicit loop: after executing the
	// instruction at Wrap without jumping, execution continues at WrapTarget.
	WrapTarget uint8
	Wrap       uint8
	// SideSetBits is the number of mandatory side-set bits in the
	// delay/side-set field. Only the lowest side-set bit drives the line.
	SideSetBits uint8
}

// WS2812Program is the WS2812 bit serializer:
//
//	    .side_set 1
//	    .wrap_target
//	bitloop:
//	    out x, 1        side 0 [T3 - 1]
//	    jmp !x do_zero  side 1 [T1 - 1]
//	do_one:
//	    jmp bitloop     side 1 [T2 - 1]
//	do_zero:
//	    nop             side 0 [T2 - 1]
//	    .wrap
var WS2812Program = Program{
	Instructions: []uint16{
		0x6221, //  0: out    x, 1            side 0 [2]
		0x1123, //  1: jmp    !x, 3           side 1 [1]
		0x1400, //  2: jmp    0               side 1 [4]
		0xa442, //  3: nop                    side 0 [4]
	},
	WrapTarget:  0,
	Wrap:        3,
	SideSetBits: 1,
}

type opcode uint8

const (
	opJMP  opcode = 0b000
	opWAIT opcode = 0b001
	opIN   opcode = 0b010
	opOUT  opcode = 0b011
	opPUSH opcode = 0b100
	opMOV  opcode = 0b101
	opIRQ  opcode = 0b110
	opSET  opcode = 0b111
)

var opcodeNames = [...]string{"jmp", "wait", "in", "out", "push/pull", "mov", "irq", "set"}

func (op opcode) String() string { return opcodeNames[op&0b111] }

// JMP conditions.
const (
	condAlways   = 0b000
	condXZero    = 0b001
	condXDec     = 0b010
	condYZero    = 0b011
	condYDec     = 0b100
	condXNotY    = 0b101
	condPin      = 0b110
	condOSRValid = 0b111
)

// OUT and MOV operands.
const (
	regX    = 0b001
	regY    = 0b010
	regNull = 0b011
	regOSR  = 0b111
)

type instruction struct {
	op      opcode
	delay   uint8
	sideSet uint8

	cond uint8 // jmp
	addr uint8 // jmp

	dest   uint8 // out, mov
	src    uint8 // mov
	invert bool  // mov
	count  uint8 // out; 1 to 32
}

func decodeInstruction(word uint16, sideSetBits uint8) (instruction, error) {
	if sideSetBits > 5 {
		return instruction{}, fmt.Errorf("invalid side-set width %d", sideSetBits)
	}

	field := uint8(word>>8) & 0x1f
	delayBits := 5 - sideSetBits

	in := instruction{
		op:      opcode(word >> 13),
		delay:   field & (1<<delayBits - 1),
		sideSet: field >> delayBits,
	}

	arg1 := uint8(word>>5) & 0b111
	arg2 := uint8(word) & 0x1f

	switch in.op {
	case opJMP:
		if arg1 == condPin {
			return in, fmt.Errorf("jmp pin is not supported")
		}
		in.cond = arg1
		in.addr = arg2

	case opOUT:
		switch arg1 {
		case regX, regY, regNull:
		default:
			return in, fmt.Errorf("out destination %03b is not supported", arg1)
		}
		in.dest = arg1
		in.count = arg2
		if in.count == 0 {
			in.count = 32
		}

	case opMOV:
		op := arg2 >> 3 & 0b11
		src := arg2 & 0b111
		switch arg1 {
		case regX, regY:
		default:
			return in, fmt.Errorf("mov destination %03b is not supported", arg1)
		}
		switch src {
		case regX, regY, regNull, regOSR:
		default:
			return in, fmt.Errorf("mov source %03b is not supported", src)
		}
		if op > 1 {
			return in, fmt.Errorf("mov operation %02b is not supported", op)
		}
		in.dest = arg1
		in.src = src
		in.invert = op == 1

	default:
		return in, fmt.Errorf("opcode %s is not supported", in.op)
	}

	return in, nil
}

func (p Program) decode() ([]instruction, error) {
	if len(p.Instructions) == 0 || len(p.Instructions) > 32 {
		return nil, fmt.Errorf("program has %d instructions, want 1 to 32", len(p.Instructions))
	}
	if int(p.Wrap) >= len(p.Instructions) || p.WrapTarget > p.Wrap {
		return nil, fmt.Errorf("invalid wrap %d..%d", p.WrapTarget, p.Wrap)
	}

	prog := make([]instruction, len(p.Instructions))
	for i, word := range p.Instructions {
		in, err := decodeInstruction(word, p.SideSetBits)
		if err != nil {
			return nil, fmt.Errorf("instruction %d (%#04x): %w", i, word, err)
		}
		if in.op == opJMP && int(in.addr) >= len(p.Instructions) {
			return nil, fmt.Errorf("instruction %d (%#04x): jump target %d out of range", i, word, in.addr)
		}
		prog[i] = in
	}

	return prog, nil
}
