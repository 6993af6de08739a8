package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"dev.acmcsuf.com/pixeld"
	"dev.acmcsuf.com/pixeld/lib/pattern"
	"dev.acmcsuf.com/pixeld/lib/xcolor"
)

// StreamEvent is an event sent to SSE preview clients.
type StreamEvent interface {
	Type() StreamEventType
}

// StreamEventType is a type of event sent to preview clients.
type StreamEventType string

const (
	StreamEventTypeInit  StreamEventType = "init"
	StreamEventTypeFrame StreamEventType = "frame"
)

// StreamInit is the first event of every stream.
type StreamInit struct {
	RunID       string `json:"run_id"`
	Backend     string `json:"backend"`
	StripLength int    `json:"strip_length"`
}

func (StreamInit) Type() StreamEventType {
	return StreamEventTypeInit
}

// StreamFrame is sent for every frame the client keeps up with.
type StreamFrame struct {
	Seq       uint64       `json:"seq"`
	Step      uint8        `json:"step"`
	Offset    uint8        `json:"offset"`
	Pattern   pattern.Kind `json:"pattern"`
	LEDColors []xcolor.RGB `json:"led_colors"`
}

func (StreamFrame) Type() StreamEventType {
	return StreamEventTypeFrame
}

func newStreamFrame(f pixeld.Frame) StreamFrame {
	return StreamFrame{
		Seq:       f.Seq,
		Step:      f.Step,
		Offset:    f.Offset,
		Pattern:   f.Pattern,
		LEDColors: f.Colors(),
	}
}

type sseEvent struct {
	Type string
	Data any
}

type writeFlusher interface {
	io.Writer
	http.Flusher
}

func writeSSE(w writeFlusher, ev sseEvent) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, ev.Data)
	w.Flush()
}

func streamEventToSSE(event StreamEvent) sseEvent {
	b, err := json.Marshal(event)
	if err != nil {
		panic(err)
	}
	return sseEvent{
		Type: string(event.Type()),
		Data: b,
	}
}
