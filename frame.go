package pixeld

import (
	"errors"
	"fmt"

	"dev.acmcsuf.com/pixeld/lib/pattern"
	"dev.acmcsuf.com/pixeld/lib/xcolor"
	"google.golang.org/protobuf/encoding/protowire"
)

// Frame is one strip update as it was pushed to the FIFO. A published Frame
// is never modified.
type Frame struct {
	// Seq counts frames from 1.
	Seq     uint64       `json:"seq"`
	Step    uint8        `json:"step"`
	Offset  uint8        `json:"offset"`
	Pattern pattern.Kind `json:"pattern"`
	// Words are the wire words in strip order.
	Words []uint32 `json:"words"`
}

// Colors unpacks the frame's words.
func (f Frame) Colors() []xcolor.RGB {
	colors := make([]xcolor.RGB, len(f.Words))
	for i, w := range f.Words {
		colors[i] = xcolor.Unpack(w)
	}
	return colors
}

// StreamMessage is a message sent to frame stream clients. It is encoded in
// the protobuf wire format as:
//
//	message StreamMessage {
//	  uint64 seq = 1;
//	  uint32 step = 2;
//	  uint32 offset = 3;
//	  uint32 pattern = 4;
//	  repeated fixed32 words = 5;
//	  optional string error = 6;
//	}
//
// Fields 1 to 5 are only set when Frame is not nil.
type StreamMessage struct {
	Frame *Frame
	Error string
}

const (
	fieldSeq     protowire.Number = 1
	fieldStep    protowire.Number = 2
	fieldOffset  protowire.Number = 3
	fieldPattern protowire.Number = 4
	fieldWords   protowire.Number = 5
	fieldError   protowire.Number = 6
)

// MarshalAppend appends the encoded message to b.
func (m StreamMessage) MarshalAppend(b []byte) []byte {
	if f := m.Frame; f != nil {
		b = protowire.AppendTag(b, fieldSeq, protowire.VarintType)
		b = protowire.AppendVarint(b, f.Seq)
		b = protowire.AppendTag(b, fieldStep, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(f.Step))
		b = protowire.AppendTag(b, fieldOffset, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(f.Offset))
		b = protowire.AppendTag(b, fieldPattern, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(f.Pattern))

		if len(f.Words) > 0 {
			b = protowire.AppendTag(b, fieldWords, protowire.BytesType)
			b = protowire.AppendVarint(b, uint64(4*len(f.Words)))
			for _, w := range f.Words {
				b = protowire.AppendFixed32(b, w)
			}
		}
	}

	if m.Error != "" {
		b = protowire.AppendTag(b, fieldError, protowire.BytesType)
		b = protowire.AppendString(b, m.Error)
	}

	return b
}

var errInvalidMessage = errors.New("invalid stream message")

// UnmarshalStreamMessage decodes a message encoded by MarshalAppend. Unknown
// fields are skipped.
func UnmarshalStreamMessage(b []byte) (StreamMessage, error) {
	var msg StreamMessage
	var frame Frame
	var hasFrame bool

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return msg, fmt.Errorf("%w: %v", errInvalidMessage, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num >= fieldSeq && num <= fieldPattern && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return msg, fmt.Errorf("%w: field %d: %v", errInvalidMessage, num, protowire.ParseError(n))
			}
			b = b[n:]
			hasFrame = true

			switch num {
			case fieldSeq:
				frame.Seq = v
			case fieldStep:
				frame.Step = uint8(v)
			case fieldOffset:
				frame.Offset = uint8(v)
			case fieldPattern:
				frame.Pattern = pattern.Kind(v)
			}

		case num == fieldWords && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return msg, fmt.Errorf("%w: words: %v", errInvalidMessage, protowire.ParseError(n))
			}
			b = b[n:]
			hasFrame = true

			for len(packed) > 0 {
				w, n := protowire.ConsumeFixed32(packed)
				if n < 0 {
					return msg, fmt.Errorf("%w: words: %v", errInvalidMessage, protowire.ParseError(n))
				}
				packed = packed[n:]
				frame.Words = append(frame.Words, w)
			}

		case num == fieldWords && typ == protowire.Fixed32Type:
			w, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return msg, fmt.Errorf("%w: words: %v", errInvalidMessage, protowire.ParseError(n))
			}
			b = b[n:]
			hasFrame = true
			frame.Words = append(frame.Words, w)

		case num == fieldError && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return msg, fmt.Errorf("%w: error: %v", errInvalidMessage, protowire.ParseError(n))
			}
			b = b[n:]
			msg.Error = s

		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return msg, fmt.Errorf("%w: field %d: %v", errInvalidMessage, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	if hasFrame {
		msg.Frame = &frame
	}
	return msg, nil
}
