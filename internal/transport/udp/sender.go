// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	applog "visualizer/internal/log"
)

// ErrSenderClosed is returned by Send after Close.
var ErrSenderClosed = errors.New("UDP sender is closed")

// UDPSender writes whole packets to a single connected peer. It satisfies
// PacketSender.
type UDPSender struct {
	conn   *net.UDPConn
	target *net.UDPAddr

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewUDPSender resolves target ("host:port") and connects a UDP socket to it.
func NewUDPSender(target string) (*UDPSender, error) {
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("UDPSender: resolve %q: %w", target, err)
	}

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("UDPSender: dial %s: %w", addr, err)
	}

	applog.Infof("UDPSender: Sending frames %s -> %s", conn.LocalAddr(), addr)
	return &UDPSender{conn: conn, target: addr}, nil
}

// Target returns the resolved peer address.
func (s *UDPSender) Target() string {
	return s.target.String()
}

// Send writes packet as one datagram. Write errors are returned, not
// retried; the publisher sends the latest frame again on its next tick.
func (s *UDPSender) Send(packet []byte) error {
	if s.closed.Load() {
		return ErrSenderClosed
	}
	if _, err := s.conn.Write(packet); err != nil {
		if errors.Is(err, net.ErrClosed) {
			return ErrSenderClosed
		}
		return fmt.Errorf("UDPSender: write to %s: %w", s.target, err)
	}
	return nil
}

// Close releases the socket. Later calls return the first result.
func (s *UDPSender) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		applog.Infof("UDPSender: Closing connection to %s", s.target)
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

var _ PacketSender = (*UDPSender)(nil)
