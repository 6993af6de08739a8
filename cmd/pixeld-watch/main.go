// Command pixeld-watch previews a running pixeld's strip in the terminal.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"

	"dev.acmcsuf.com/pixeld"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

var (
	httpAddr = "127.0.0.1:9002"
	verbose  = false
)

func init() {
	pflag.StringVarP(&httpAddr, "http-addr", "a", httpAddr, "pixeld admin HTTP server address")
	pflag.BoolVarP(&verbose, "verbose", "v", verbose, "verbose logging")
}

func main() {
	log.SetFlags(0)
	pflag.Parse()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	logHandler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05 PM", // extended time.Kitchen
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})

	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	url := "ws://" + httpAddr + "/ws/frames"

	conn, br, _, err := ws.Dial(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	logger.Info(
		"watching frames",
		"url", url)

	rw, release := streamConn(conn, br)
	defer release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errg, ctx := errgroup.WithContext(ctx)

	errg.Go(func() error {
		<-ctx.Done()
		conn.Close()
		return nil
	})

	errg.Go(func() error {
		defer cancel()

		err := watch(rw, newTerminal(os.Stdout, isatty.IsTerminal(os.Stdout.Fd())), logger)
		if ctx.Err() != nil {
			// Interrupted.
			return nil
		}
		return err
	})

	return errg.Wait()
}

// streamConn reads through the handshake's buffered reader when there is one,
// so frames that arrived with the handshake response are not lost. release
// returns the reader to the pool once reading is done.
func streamConn(conn net.Conn, br *bufio.Reader) (rw io.ReadWriter, release func()) {
	if br == nil {
		return conn, func() {}
	}
	rw = struct {
		io.Reader
		io.Writer
	}{br, conn}
	return rw, func() { ws.PutReader(br) }
}

// watch renders frames read from conn until the server closes the stream.
func watch(conn io.ReadWriter, term *terminal, logger *slog.Logger) error {
	defer term.Done()

	for {
		b, _, err := wsutil.ReadServerData(conn)
		if err != nil {
			var closedErr wsutil.ClosedError
			if errors.As(err, &closedErr) {
				logger.Info(
					"server closed the frame stream",
					"code", closedErr.Code,
					"reason", closedErr.Reason)
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("failed to read frame: %w", err)
		}

		msg, err := pixeld.UnmarshalStreamMessage(b)
		if err != nil {
			return err
		}

		if msg.Error != "" {
			return fmt.Errorf("server error: %s", msg.Error)
		}

		if msg.Frame != nil {
			term.Render(*msg.Frame)
		}
	}
}
