package pixeld

import (
	"encoding/json"
	"errors"
	"testing"

	"dev.acmcsuf.com/pixeld/lib/pattern"
	"dev.acmcsuf.com/pixeld/lib/xcolor"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestStreamMessage(t *testing.T) {
	tests := []struct {
		name string
		msg  StreamMessage
	}{
		{
			name: "frame",
			msg: StreamMessage{Frame: &Frame{
				Seq:     1 << 40,
				Step:    200,
				Offset:  96,
				Pattern: pattern.Sparkle,
				Words:   []uint32{0xFFFFFF, 0, 0x123456},
			}},
		},
		{
			name: "empty frame",
			msg:  StreamMessage{Frame: &Frame{Seq: 1}},
		},
		{
			name: "error",
			msg:  StreamMessage{Error: "frame stream is read-only"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b := test.msg.MarshalAppend(nil)
			got, err := UnmarshalStreamMessage(b)
			if err != nil {
				t.Fatal("unmarshal:", err)
			}
			assertEq(t, test.msg, got)
		})
	}
}

func TestUnmarshalStreamMessageUnpacked(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 99, protowire.BytesType)
	b = protowire.AppendString(b, "ignored")
	b = protowire.AppendTag(b, fieldWords, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 0x00FF00)
	b = protowire.AppendTag(b, fieldWords, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 0x0000FF)

	got, err := UnmarshalStreamMessage(b)
	if err != nil {
		t.Fatal("unmarshal:", err)
	}
	assertEq(t, StreamMessage{Frame: &Frame{Words: []uint32{0x00FF00, 0x0000FF}}}, got)
}

func TestUnmarshalStreamMessageTruncated(t *testing.T) {
	b := StreamMessage{Frame: &Frame{Seq: 1, Words: []uint32{1, 2}}}.MarshalAppend(nil)

	_, err := UnmarshalStreamMessage(b[:len(b)-1])
	if !errors.Is(err, errInvalidMessage) {
		t.Fatalf("got error %v, want %v", err, errInvalidMessage)
	}
}

func TestFrameColors(t *testing.T) {
	f := Frame{Words: []uint32{xcolor.Red.Pack(), xcolor.Green.Pack(), 0}}
	assertEq(t, []xcolor.RGB{xcolor.Red, xcolor.Green, xcolor.Black}, f.Colors())
}

func TestFrameJSON(t *testing.T) {
	b, err := json.Marshal(Frame{Seq: 3, Step: 4, Offset: 8, Pattern: pattern.Chase, Words: []uint32{65280}})
	if err != nil {
		t.Fatal(err)
	}
	assertEq(t, `{"seq":3,"step":4,"offset":8,"pattern":"chase","words":[65280]}`, string(b))
}
