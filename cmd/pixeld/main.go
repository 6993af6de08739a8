package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"dev.acmcsuf.com/pixeld"
	"dev.acmcsuf.com/pixeld/lib/pattern"
	"dev.acmcsuf.com/pixeld/lib/pixelfifo"
	"dev.acmcsuf.com/pixeld/lib/ws2812"
	"github.com/gofrs/uuid/v5"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"libdb.so/hserve"
)

var defaults = pixeld.DefaultConfig()

var (
	httpAddr      = "127.0.0.1:9002"
	backend       = backendSim
	stripLength   = defaults.StripLength
	outputPin     = defaults.OutputPin
	frameDelayMs  = int(defaults.FrameDelay / time.Millisecond)
	clockDivisor  = defaults.ClockDivisor.Float()
	systemClockHz = defaults.SystemClockHz
	fifoDepth     = defaults.FIFODepth
	statusChip    = "gpiochip0"
	statusPin     = -1
	pinnedPattern = ""
	verbose       = false
)

const (
	backendSim    = "sim"
	backendWS281x = "ws281x"
)

func init() {
	pflag.StringVarP(&httpAddr, "http-addr", "a", httpAddr, "admin HTTP server address, empty to disable")
	pflag.StringVar(&backend, "backend", backend, "output backend: sim or ws281x")
	pflag.IntVarP(&stripLength, "strip-length", "n", stripLength, "number of LEDs on the strip")
	pflag.IntVar(&outputPin, "output-pin", outputPin, "GPIO pin of the data line")
	pflag.IntVar(&frameDelayMs, "frame-delay-ms", frameDelayMs, "pause after each frame in milliseconds")
	pflag.Float64Var(&clockDivisor, "clock-divisor", clockDivisor, "state machine clock divisor")
	pflag.Uint32Var(&systemClockHz, "system-clock-hz", systemClockHz, "system clock frequency in Hz")
	pflag.IntVar(&fifoDepth, "fifo-depth", fifoDepth, "number of words the FIFO holds")
	pflag.StringVar(&statusChip, "status-chip", statusChip, "GPIO chip of the status LED")
	pflag.IntVar(&statusPin, "status-pin", statusPin, "GPIO line of the status LED, negative to only log")
	pflag.StringVarP(&pinnedPattern, "pattern", "p", pinnedPattern, "show only this pattern: wave, solid, chase or sparkle")
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

	if err := run(ctx, logger, level); err != nil {
		log.Fatal(err)
	}
}

// consumer drains the FIFO into an output.
type consumer interface {
	Run(ctx context.Context) error
}

func run(ctx context.Context, logger *slog.Logger, level slog.Level) error {
	divisor, err := ws2812.ParseClockDivisor(clockDivisor)
	if err != nil {
		return fmt.Errorf("invalid --clock-divisor: %w", err)
	}

	cfg := pixeld.Config{
		StripLength:   stripLength,
		OutputPin:     outputPin,
		FrameDelay:    time.Duration(frameDelayMs) * time.Millisecond,
		ClockDivisor:  divisor,
		SystemClockHz: systemClockHz,
		FIFODepth:     fifoDepth,
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var pin *pattern.Kind
	if pinnedPattern != "" {
		kind, err := pattern.ParseKind(pinnedPattern)
		if err != nil {
			return fmt.Errorf("invalid --pattern: %w", err)
		}
		pin = &kind
	}

	runID, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate run ID: %w", err)
	}

	logger = logger.With("run_id", runID.String())

	fifo := pixelfifo.New(cfg.FIFODepth)
	status := &runStatus{
		RunID:   runID.String(),
		Backend: backend,
		Started: time.Now(),
		Config:  cfg,
		FIFO:    fifo,
	}

	var output consumer
	switch backend {
	case backendSim:
		sim, err := newSimOutput(cfg, fifo, logger.With("component", "encoder"))
		if err != nil {
			return err
		}
		status.Encoder = sim.encoder
		status.Decoder = sim.decoder
		output = sim
	case backendWS281x:
		sink, err := newWS281xSink(cfg, fifo, logger.With("component", "ws281x"))
		if err != nil {
			return err
		}
		output = sink
	default:
		return fmt.Errorf("unknown backend %q", backend)
	}

	indicator, closeIndicator := openStatusIndicator(logger.With("component", "status"))
	defer closeIndicator()

	hub := &pixeld.FrameHub{}

	animator, err := pixeld.NewAnimator(pixeld.AnimatorOpts{
		StripLength: cfg.StripLength,
		Output:      fifo,
		FrameDelay:  cfg.FrameDelay,
		Status:      indicator,
		Pattern:     pin,
		Hub:         hub,
		Logger:      logger.With("component", "animator"),
	})
	if err != nil {
		return fmt.Errorf("failed to create animator: %w", err)
	}
	status.Animator = animator

	server := pixeld.NewServer(pixeld.ServerOpts{
		Hub:     hub,
		Current: animator,
		Logger:  logger.With("component", "server"),
	})
	status.Server = server

	errg, ctx := errgroup.WithContext(ctx)

	errg.Go(func() error {
		// Release the animator if it is blocked on a full FIFO.
		defer fifo.Close()

		if err := output.Run(ctx); err != nil && !errors.Is(err, pixelfifo.ErrClosed) {
			return fmt.Errorf("%s output failed: %w", backend, err)
		}
		return nil
	})

	errg.Go(func() error {
		if err := animator.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if httpAddr != "" {
		errg.Go(func() error {
			admin := newAdminHandler(adminOpts{
				Server: server,
				Hub:    hub,
				Status: status,
				Logger: logger,
				Level:  level,
			})

			logger.Info(
				"starting admin HTTP server",
				"addr", httpAddr)

			if err := hserve.ListenAndServe(ctx, httpAddr, admin); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("admin HTTP server failed: %w", err)
			}
			return nil
		})
	}

	return errg.Wait()
}
