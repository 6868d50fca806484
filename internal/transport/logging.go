// SPDX-License-Identifier: MIT
package transport

import (
	"sync/atomic"

	applog "visualizer/internal/log"
)

// LoggingTransport implements the Transport interface by logging a one-line
// summary of every Every-th frame at debug level.
type LoggingTransport struct {
	Every uint64
	sent  atomic.Uint64
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport(every uint64) *LoggingTransport {
	applog.Infof("Transport: Using LoggingTransport (every %d frames)", every)
	return &LoggingTransport{Every: max(every, 1)}
}

// Send logs the received data. Logging transport never fails to "send".
func (lt *LoggingTransport) Send(data any) error {
	n := lt.sent.Add(1)
	if lt.Every > 1 && n%lt.Every != 0 {
		return nil
	}

	switch f := data.(type) {
	case Frame:
		applog.Debugf("LoggingTransport: frame %d paused=%v width=%d peak=%.3f",
			f.Seq, f.Paused, len(f.Magnitudes), f.Peak())
	default:
		applog.Debugf("LoggingTransport: received (%T): %+v", data, data)
	}
	return nil
}

// Sent returns the number of Send calls.
func (lt *LoggingTransport) Sent() uint64 { return lt.sent.Load() }

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	applog.Debugf("LoggingTransport: Close called after %d frames", lt.sent.Load())
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
