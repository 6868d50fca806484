// SPDX-License-Identifier: MIT
package source

import (
	"context"
	"errors"
	"io"
	"time"

	applog "visualizer/internal/log"
)

// Stream reads src in chunks of chunk samples and writes them to sink at the
// source's real-time rate, so a decoded file drives the engine like a live
// device. It returns nil when src is exhausted and ctx.Err() on cancellation.
func Stream(ctx context.Context, src Source, sink Sink, chunk int) error {
	if chunk < 1 {
		chunk = 1024
	}
	rate := src.SampleRate()
	if rate <= 0 {
		return errors.New("source: invalid sample rate")
	}

	interval := time.Duration(float64(time.Second) * float64(chunk) / float64(rate))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	buf := make([]float32, chunk)
	var total int

	for {
		n, err := readFull(src, buf)
		if n > 0 {
			sink.Write(buf[:n])
			total += n
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				applog.Infof("Source: End of stream after %d samples (%.1fs)", total, float64(total)/float64(rate))
				return nil
			}
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// readFull reads until buf is full or src fails. A short final chunk is
// returned together with io.EOF.
func readFull(src Source, buf []float32) (int, error) {
	var n int
	for n < len(buf) {
		m, err := src.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
		if m == 0 {
			return n, io.ErrNoProgress
		}
	}
	return n, nil
}
