// SPDX-License-Identifier: MIT
package log

import (
	"time"

	"visualizer/internal/pipeline"
)

// FrameLogger is a pipeline.Observer that writes a debug line every Every
// frames with the peak bin and the average processing time since the last
// line. The zero value logs every frame.
type FrameLogger struct {
	Every uint64

	total time.Duration
	count uint64
}

// NewFrameLogger returns a FrameLogger reporting once per every frames.
func NewFrameLogger(every uint64) *FrameLogger {
	return &FrameLogger{Every: every}
}

// ObserveFrame implements pipeline.Observer.
func (f *FrameLogger) ObserveFrame(stats pipeline.FrameStats) {
	f.total += stats.Duration
	f.count++

	every := max(f.Every, 1)
	if stats.Sequence%every != 0 {
		return
	}

	if Enabled(LevelDebug) {
		avg := f.total / time.Duration(f.count)
		Debugf("Pipeline: frame %d, %d bins kept, peak %.3f at bin %d, avg %s",
			stats.Sequence, stats.Retained, stats.Peak, stats.PeakBin, avg)
	}
	f.total = 0
	f.count = 0
}

var _ pipeline.Observer = (*FrameLogger)(nil)
