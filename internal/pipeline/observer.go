// SPDX-License-Identifier: MIT
package pipeline

import "time"

// FrameStats summarizes one processed frame.
type FrameStats struct {
	Sequence uint64        // 1-based count of processed frames
	Retained int           // Bins kept by selection
	Peak     float64       // Largest retained magnitude, clamped to [0, 1]
	PeakBin  int           // Original index of the peak bin, -1 if none kept
	Duration time.Duration // Time spent in ProcessFrame
}

// Observer receives FrameStats after every processed frame. It is called on
// the processing goroutine and should return quickly.
type Observer interface {
	ObserveFrame(stats FrameStats)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(stats FrameStats)

// ObserveFrame calls f(stats).
func (f ObserverFunc) ObserveFrame(stats FrameStats) { f(stats) }
