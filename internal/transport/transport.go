// SPDX-License-Identifier: MIT
package transport

// Transport defines a generic interface for sending processed frames.
// Implementations should be thread-safe and must not block the caller.
type Transport interface {
	Send(data any) error
	Close() error
}

// Frame is one published output buffer.
type Frame struct {
	Seq        uint64    `json:"seq"`        // Processed frame count, unchanged while paused
	Paused     bool      `json:"paused"`     // Pause gate state when the frame was sent
	Magnitudes []float32 `json:"magnitudes"` // Output magnitudes in [0, 1], mirror symmetric
}

// Peak returns the largest magnitude in the frame.
func (f Frame) Peak() float32 {
	var peak float32
	for _, v := range f.Magnitudes {
		peak = max(peak, v)
	}
	return peak
}

// FrameProvider exposes the most recent output buffer to pull-based
// publishers that run on their own schedule.
type FrameProvider interface {
	// Width returns the output buffer length.
	Width() int
	// LatestInto copies the latest output into dst, which must have length
	// Width, and returns its sequence number.
	LatestInto(dst []float32) (uint64, error)
}
