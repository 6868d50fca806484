// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"visualizer/internal/audio"
	"visualizer/internal/config"
	applog "visualizer/internal/log"
	"visualizer/internal/source"
	"visualizer/internal/transport"
	"visualizer/internal/transport/udp"
	"visualizer/internal/tui"

	"golang.org/x/sync/errgroup"
)

// session wires one engine to its transports for the lifetime of a command.
type session struct {
	cfg       *config.Config
	engine    *audio.Engine
	sender    *udp.UDPSender
	publisher *udp.UDPPublisher
	ws        *transport.WebSocketTransport
}

func newSession(cfg *config.Config, sampleRate int) (*session, error) {
	popts, err := cfg.PipelineOptions()
	if err != nil {
		return nil, err
	}

	// Frame stats and transport summaries once per second in debug mode.
	perSecond := uint64(max(cfg.Pipeline.FrameRate, 1))
	if cfg.Debug {
		popts.Observer = applog.NewFrameLogger(perSecond)
	}

	var transports []transport.Transport
	closeAll := func() {
		for _, t := range transports {
			t.Close()
		}
	}

	// The engine ticker already paces frames, so the WebSocket has no rate
	// limit of its own.
	var ws *transport.WebSocketTransport
	if cfg.Transport.WebSocketEnabled {
		ws, err = transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress, 0)
		if err != nil {
			return nil, err
		}
		transports = append(transports, ws)
	}
	if cfg.Debug {
		transports = append(transports, transport.NewLoggingTransport(perSecond))
	}

	engine, err := audio.NewEngine(audio.Options{
		Pipeline:   popts,
		SampleRate: sampleRate,
		Interval:   cfg.FrameInterval(),
		BitDepth:   cfg.Recording.BitDepth,
		Transports: transports,
	})
	if err != nil {
		closeAll()
		return nil, err
	}

	s := &session{cfg: cfg, engine: engine, ws: ws}

	if cfg.Transport.UDPEnabled {
		s.sender, err = udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			engine.Close()
			return nil, err
		}
		s.publisher, err = udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, s.sender, engine)
		if err != nil {
			s.sender.Close()
			engine.Close()
			return nil, err
		}
	}

	return s, nil
}

// run starts the engine, the publishers and input, then blocks until ctx is
// cancelled, input ends or the preview is closed.
func (s *session) run(ctx context.Context, title string, input func(context.Context) error) error {
	if s.cfg.Recording.Enabled {
		path, err := recordingPath(s.cfg.Recording, time.Now())
		if err != nil {
			return err
		}
		if err := s.engine.StartRecording(path); err != nil {
			return err
		}
		defer fmt.Fprintf(os.Stderr, "\nRecording saved to: %s\n", path)
	}

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(gctx)
	defer stop()

	g.Go(func() error {
		return s.engine.Run(runCtx)
	})

	if s.publisher != nil {
		s.publisher.Start()
	}

	g.Go(func() error {
		defer stop()
		if err := input(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if s.cfg.TUI {
		g.Go(func() error {
			defer stop()
			applog.SetOutput(io.Discard)
			defer applog.SetOutput(os.Stderr)
			return tui.RunPreview(runCtx, s.engine, title, s.cfg.FrameInterval())
		})
	}

	err := g.Wait()
	return errors.Join(err, s.close())
}

func (s *session) close() error {
	var errs []error
	if s.publisher != nil {
		errs = append(errs, s.publisher.Close())
	}
	errs = append(errs, s.engine.Close())
	if s.sender != nil {
		errs = append(errs, s.sender.Close())
	}
	return errors.Join(errs...)
}

// recordingPath returns the explicit output file, or a timestamped name in
// the output directory.
func recordingPath(rc config.RecordingConfig, now time.Time) (string, error) {
	if rc.OutputFile != "" {
		return rc.OutputFile, nil
	}
	if err := os.MkdirAll(rc.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create recording directory: %w", err)
	}
	name := "recording-" + now.UTC().Format("02-01-2006-150405") + ".wav"
	return filepath.Join(rc.OutputDir, name), nil
}

// runLive captures from a PortAudio input device.
func runLive(ctx context.Context, cfg *config.Config, pick bool) error {
	if err := source.Initialize(); err != nil {
		return err
	}
	defer source.Terminate()

	if pick {
		sel, ok, err := tui.PickDevice()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		cfg.Audio.InputDevice = sel.DeviceID
		cfg.Audio.SampleRate = sel.SampleRate
	}

	capture, err := source.NewCapture(source.CaptureConfig{
		DeviceID:        cfg.Audio.InputDevice,
		SampleRate:      cfg.Audio.SampleRate,
		FramesPerBuffer: cfg.Audio.FramesPerBuffer,
		Channels:        cfg.Audio.InputChannels,
		LowLatency:      cfg.Audio.LowLatency,
	})
	if err != nil {
		return err
	}

	s, err := newSession(cfg, capture.SampleRate())
	if err != nil {
		return err
	}

	return s.run(ctx, capture.DeviceName(), func(ctx context.Context) error {
		if err := capture.Start(s.engine); err != nil {
			return err
		}
		<-ctx.Done()
		return capture.Close()
	})
}

// runFile decodes path and paces it in real time.
func runFile(ctx context.Context, cfg *config.Config, path string) error {
	src, err := source.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	s, err := newSession(cfg, src.SampleRate())
	if err != nil {
		return err
	}

	applog.Infof("Play: %s (%d Hz)", path, src.SampleRate())
	return s.run(ctx, filepath.Base(path), func(ctx context.Context) error {
		return source.Stream(ctx, src, s.engine, cfg.Audio.FramesPerBuffer)
	})
}
