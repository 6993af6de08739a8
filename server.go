package pixeld

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gobwas/ws"
	"golang.org/x/sync/errgroup"
	"gopkg.in/typ.v4/sync2"
)

// FrameSource provides the most recently sent frame. It is implemented by
// *Animator.
type FrameSource interface {
	LastFrame() (Frame, bool)
}

// ServerOpts are options for a frame stream server.
type ServerOpts struct {
	// Hub is the hub that frames are streamed from.
	Hub *FrameHub
	// Current, if not nil, provides the frame sent to clients as soon as they
	// connect.
	Current FrameSource
	// Logger is the logger to use for the server.
	Logger *slog.Logger
	// HTTPUpgrader is the HTTP-to-Websocket upgrader to use for the server.
	HTTPUpgrader ws.HTTPUpgrader
}

// Server streams frames to websocket clients. Clients are read-only
// observers: a slow client skips frames instead of slowing the strip down.
type Server struct {
	opts        ServerOpts
	connections sync2.Map[*Session, sessionControl]
}

type sessionControl struct {
	cancel context.CancelCauseFunc
}

// NewServer creates a new server.
func NewServer(opts ServerOpts) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		opts: opts,
	}
}

// KickAllConnections kicks all connections from the server.
// Optionally, a reason can be provided.
func (s *Server) KickAllConnections(reason string) {
	var err error
	if reason != "" {
		err = fmt.Errorf("kicked: %s", reason)
	} else {
		err = fmt.Errorf("kicked")
	}

	s.connections.Range(func(s *Session, ctrl sessionControl) bool {
		ctrl.cancel(err)
		return true
	})
}

// Connections returns the number of connected clients.
func (s *Server) Connections() int {
	var n int
	s.connections.Range(func(*Session, sessionControl) bool {
		n++
		return true
	})
	return n
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	session, err := SessionUpgrade(w, r, s.opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithCancelCause(r.Context())
	defer cancel(nil)

	s.connections.Store(session, sessionControl{cancel: cancel})
	defer s.connections.Delete(session)

	if err := session.Start(ctx); err != nil && ctx.Err() == nil {
		session.logger.WarnContext(ctx,
			"frame stream session ended with error",
			"error", err)
	}
}

// Session is a websocket session streaming frames to a single client.
type Session struct {
	ws     *websocketServer
	logger *slog.Logger
	opts   ServerOpts
}

// SessionUpgrade upgrades an HTTP request to a websocket session.
func SessionUpgrade(w http.ResponseWriter, r *http.Request, opts ServerOpts) (*Session, error) {
	wsconn, _, _, err := opts.HTTPUpgrader.Upgrade(r, w)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade HTTP: %w", err)
	}

	logger := opts.Logger.With("addr", wsconn.RemoteAddr())

	return &Session{
		ws:     newWebsocketServer(wsconn, logger),
		logger: logger,
		opts:   opts,
	}, nil
}

// Start starts the session and blocks until it ends.
func (s *Session) Start(ctx context.Context) error {
	errg, ctx := errgroup.WithContext(ctx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errg.Go(func() error {
		defer cancel()
		return s.ws.Start(ctx)
	})

	errg.Go(func() error {
		// Treat main loop errors as fatal and kill the connection,
		// but don't return it because it's not the caller's fault.
		if err := s.mainLoop(ctx); err != nil {
			return s.ws.SendError(ctx, err)
		}
		return nil
	})

	return errg.Wait()
}

func (s *Session) mainLoop(ctx context.Context) error {
	frames := make(chan Frame, 1)
	if s.opts.Hub != nil {
		unsubscribe := s.opts.Hub.Subscribe(frames)
		defer unsubscribe()
	}

	var lastSeq uint64
	if s.opts.Current != nil {
		if frame, ok := s.opts.Current.LastFrame(); ok {
			if err := s.ws.Send(ctx, StreamMessage{Frame: &frame}); err != nil {
				return nil
			}
			lastSeq = frame.Seq
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case frame := <-frames:
			if frame.Seq != 0 && frame.Seq <= lastSeq {
				continue
			}
			lastSeq = frame.Seq

			if err := s.ws.Send(ctx, StreamMessage{Frame: &frame}); err != nil {
				return nil
			}
		}
	}
}
