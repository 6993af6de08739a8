package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"dev.acmcsuf.com/pixeld"
	"dev.acmcsuf.com/pixeld/lib/pixelfifo"
	"dev.acmcsuf.com/pixeld/lib/ws2812"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"libdb.so/hrt"
)

// runStatus is everything /status reports on. Encoder and Decoder are nil
// unless the simulated backend is used.
type runStatus struct {
	RunID    string
	Backend  string
	Started  time.Time
	Config   pixeld.Config
	FIFO     *pixelfifo.FIFO
	Encoder  *ws2812.Encoder
	Decoder  *ws2812.Decoder
	Animator *pixeld.Animator
	Server   *pixeld.Server
}

type adminOpts struct {
	Server *pixeld.Server
	Hub    *pixeld.FrameHub
	Status *runStatus
	Logger *slog.Logger
	Level  slog.Level
}

type adminHandler struct {
	*chi.Mux
	opts adminOpts
}

func newAdminHandler(opts adminOpts) *adminHandler {
	h := &adminHandler{
		Mux:  chi.NewRouter(),
		opts: opts,
	}

	h.Use(httplog.RequestLogger(httplog.NewLogger("pixeld", httplog.Options{
		LogLevel: opts.Level,
		Concise:  true,
	})))

	h.Use(hrt.Use(hrt.Opts{
		Encoder: hrt.CombinedEncoder{
			Encoder: hrt.JSONEncoder,
			Decoder: hrt.URLDecoder,
		},
		ErrorWriter: hrt.TextErrorWriter,
	}))

	h.Get("/status", hrt.Wrap(h.status))
	h.Post("/kick-all", hrt.Wrap(h.kickAll))
	h.Get("/ws/frames", opts.Server.ServeHTTP)
	h.Get("/events", h.events)

	return h
}

type statusRequest struct{}

type statusResponse struct {
	RunID   string `json:"run_id"`
	Backend string `json:"backend"`
	Uptime  string `json:"uptime"`

	StripLength  int    `json:"strip_length"`
	FrameDelay   string `json:"frame_delay"`
	ClockDivisor string `json:"clock_divisor"`

	Frames    uint64        `json:"frames"`
	LastFrame *pixeld.Frame `json:"last_frame,omitempty"`
	Clients   int           `json:"clients"`

	FIFO    pixelfifo.Stats      `json:"fifo"`
	Timing  *ws2812.BitTiming    `json:"timing,omitempty"`
	Encoder *ws2812.Stats        `json:"encoder,omitempty"`
	Decoder *ws2812.DecoderStats `json:"decoder,omitempty"`
}

func (h *adminHandler) status(ctx context.Context, req statusRequest) (statusResponse, error) {
	s := h.opts.Status

	resp := statusResponse{
		RunID:        s.RunID,
		Backend:      s.Backend,
		Uptime:       time.Since(s.Started).Round(time.Second).String(),
		StripLength:  s.Config.StripLength,
		FrameDelay:   s.Config.FrameDelay.String(),
		ClockDivisor: s.Config.ClockDivisor.String(),
		Frames:       s.Animator.Frames(),
		Clients:      s.Server.Connections(),
		FIFO:         s.FIFO.Stats(),
	}

	if frame, ok := s.Animator.LastFrame(); ok {
		resp.LastFrame = &frame
	}

	if s.Encoder != nil {
		timing := s.Encoder.Timing()
		stats := s.Encoder.Stats()
		resp.Timing = &timing
		resp.Encoder = &stats
	}

	if s.Decoder != nil {
		stats := s.Decoder.Stats()
		resp.Decoder = &stats
	}

	return resp, nil
}

type kickAllRequest struct {
	Reason string `query:"reason"`
}

func (h *adminHandler) kickAll(ctx context.Context, req kickAllRequest) (hrt.None, error) {
	h.opts.Server.KickAllConnections(req.Reason)
	return hrt.Empty, nil
}

func (h *adminHandler) events(w http.ResponseWriter, r *http.Request) {
	wflush, ok := w.(writeFlusher)
	if !ok {
		http.Error(w, "server does not support flushing", http.StatusInternalServerError)
		return
	}

	frames := make(chan pixeld.Frame, 1)
	unsubscribe := h.opts.Hub.Subscribe(frames)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	writeSSE(wflush, streamEventToSSE(StreamInit{
		RunID:       h.opts.Status.RunID,
		Backend:     h.opts.Status.Backend,
		StripLength: h.opts.Status.Config.StripLength,
	}))

	h.opts.Logger.Debug(
		"preview client subscribed",
		"addr", r.RemoteAddr)

	for {
		select {
		case <-r.Context().Done():
			h.opts.Logger.Debug(
				"preview client left",
				"addr", r.RemoteAddr)
			return
		case frame := <-frames:
			writeSSE(wflush, streamEventToSSE(newStreamFrame(frame)))
		}
	}
}
