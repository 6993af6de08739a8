package pixeld

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"golang.org/x/sync/errgroup"
)

// errReadOnlyStream is delivered to clients that send data messages. The frame
// stream only flows from the server to the client.
var errReadOnlyStream = errors.New("frame stream is read-only")

type closeFrame struct {
	Code   ws.StatusCode
	Reason string
}

func (f closeFrame) encode() []byte {
	return ws.NewCloseFrameBody(f.Code, f.Reason)
}

type websocketServer struct {
	// Sending is a channel of messages to send to the client.
	Sending chan StreamMessage

	wsconn io.ReadWriteCloser
	logger *slog.Logger
}

func newWebsocketServer(wsconn io.ReadWriteCloser, logger *slog.Logger) *websocketServer {
	return &websocketServer{
		Sending: make(chan StreamMessage),
		wsconn:  wsconn,
		logger:  logger,
	}
}

// Send sends a message to the client.
func (s *websocketServer) Send(ctx context.Context, msg StreamMessage) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case s.Sending <- msg:
		return nil
	}
}

// SendError sends an error message to the client. The server closes the
// connection after sending it.
func (s *websocketServer) SendError(ctx context.Context, err error) error {
	return s.Send(ctx, StreamMessage{Error: err.Error()})
}

func (s *websocketServer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errg, ctx := errgroup.WithContext(ctx)

	errg.Go(func() error {
		<-ctx.Done()

		s.logger.DebugContext(ctx,
			"closing websocket",
			"error", ctx.Err().Error())

		if closeErr := s.wsconn.Close(); closeErr != nil {
			s.logger.WarnContext(ctx,
				"failed to close websocket",
				"error", closeErr.Error())

			return fmt.Errorf("failed to close websocket: %w", closeErr)
		}

		return nil
	})

	errg.Go(func() error {
		defer cancel()

		var buf bytes.Buffer
		buf.Grow(64)

		var rejected bool
		for {
			_, err := wsReadData(&buf, s.wsconn, ws.StateServerSide, ws.OpBinary|ws.OpText)
			if err != nil {
				var closedErr wsutil.ClosedError
				if errors.As(err, &closedErr) {
					s.logger.DebugContext(ctx,
						"received close frame from client")

					return nil
				}

				if ctx.Err() != nil {
					return ctx.Err()
				}

				s.logger.DebugContext(ctx,
					"failed to read from websocket",
					"error", err.Error())

				return fmt.Errorf("failed to read from websocket: %w", err)
			}

			s.logger.DebugContext(ctx,
				"client sent a message on the frame stream",
				"size", buf.Len())

			// Keep reading after rejecting so that the client's answer to
			// our close frame is consumed.
			if !rejected {
				rejected = true
				if err := s.SendError(ctx, errReadOnlyStream); err != nil {
					return err
				}
			}
		}
	})

	errg.Go(func() error {
		buf := make([]byte, 0, 256)

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()

			case msg := <-s.Sending:
				buf = msg.MarshalAppend(buf[:0])

				if err := wsutil.WriteServerBinary(s.wsconn, buf); err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					return fmt.Errorf("failed to write to websocket: %w", err)
				}

				// If we've just delivered an error, then shut down the
				// connection.
				if msg.Error != "" {
					closeFrame := closeFrame{
						Code:   ws.StatusNormalClosure,
						Reason: "error delivered to client",
					}

					s.logger.DebugContext(ctx,
						"sending close frame to client",
						"code", closeFrame.Code,
						"reason", closeFrame.Reason)

					if err := ws.WriteFrame(s.wsconn, ws.NewCloseFrame(closeFrame.encode())); err != nil {
						s.logger.WarnContext(ctx,
							"failed to write close frame",
							"error", err.Error())
					}

					// Give the client 2 seconds to answer the close frame,
					// then drop the connection.
					errg.Go(func() error {
						timer := time.NewTimer(2 * time.Second)
						defer timer.Stop()

						select {
						case <-timer.C:
							cancel()
						case <-ctx.Done():
						}
						return nil
					})

					return nil
				}
			}
		}
	})

	return errg.Wait()
}

func wsReadData(dst *bytes.Buffer, src io.ReadWriter, s ws.State, want ws.OpCode) (ws.OpCode, error) {
	controlHandler := wsutil.ControlFrameHandler(src, s)
	rd := wsutil.Reader{
		Source:          src,
		State:           s,
		SkipHeaderCheck: false,
		OnIntermediate:  controlHandler,
	}
	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			return 0, err
		}
		if hdr.OpCode.IsControl() {
			if err := controlHandler(hdr, &rd); err != nil {
				return 0, err
			}
			continue
		}
		if hdr.OpCode&want == 0 {
			if err := rd.Discard(); err != nil {
				return 0, err
			}
			continue
		}

		dst.Reset()
		_, err = io.Copy(dst, &rd)
		return hdr.OpCode, err
	}
}
