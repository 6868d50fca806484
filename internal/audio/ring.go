// SPDX-License-Identifier: MIT
package audio

import "sync"

// RingBuffer is a thread-safe circular buffer of mono samples. Writers never
// block on readers; the oldest samples are overwritten when full.
type RingBuffer struct {
	buf  []float32
	size int
	w    int // write position
	len  int // current fill level
	mu   sync.Mutex
}

// NewRingBuffer creates a ring buffer holding size samples.
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{
		buf:  make([]float32, size),
		size: size,
	}
}

// Write appends samples, overwriting the oldest data if full.
func (rb *RingBuffer) Write(p []float32) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	// Only the newest size samples can survive.
	if len(p) > rb.size {
		p = p[len(p)-rb.size:]
	}

	n := copy(rb.buf[rb.w:], p)
	copy(rb.buf, p[n:])
	rb.w = (rb.w + len(p)) % rb.size

	rb.len = min(rb.len+len(p), rb.size)
}

// Latest copies the most recent samples into dst, oldest first, and returns
// how many were copied. Fewer than len(dst) are copied while the buffer is
// still filling.
func (rb *RingBuffer) Latest(dst []float32) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	n := min(len(dst), rb.len)
	if n == 0 {
		return 0
	}

	start := (rb.w - n + rb.size) % rb.size
	m := copy(dst[:n], rb.buf[start:])
	copy(dst[m:n], rb.buf)
	return n
}

// Len returns the number of buffered samples.
func (rb *RingBuffer) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.len
}

// Clear resets the buffer.
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.w = 0
	rb.len = 0
}
