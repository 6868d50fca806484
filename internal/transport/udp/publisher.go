// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	applog "visualizer/internal/log"
	"visualizer/internal/transport"
)

// HeaderSize is the fixed packet header length in bytes.
const HeaderSize = 4 + 8 + 2

// ErrShortPacket is returned by DecodePacket for truncated input.
var ErrShortPacket = errors.New("udp: packet too short")

// PacketSender is the subset of UDPSender the publisher needs.
type PacketSender interface {
	Send(data []byte) error
}

// UDPPublisher periodically fetches the latest output magnitudes, packs them
// into a defined binary format, and sends them over UDP. It runs in a
// separate goroutine managed by Start and Stop.
type UDPPublisher struct {
	sender   PacketSender
	provider transport.FrameProvider
	interval time.Duration

	ticker   *time.Ticker   // Ticker that triggers packet sending.
	doneChan chan struct{}  // Channel used to signal the publisher goroutine to stop.
	stopOnce sync.Once      // Ensures the stop logic runs only once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the publisher goroutine to finish during Stop.
	mu       sync.Mutex     // Protects access to ticker and doneChan during Start/Stop.

	sequenceNum uint32 // Monotonically increasing sequence number for packets.

	// Pre-allocated buffers, reused for every packet.
	magnitudes []float32
	packet     []byte
}

// NewUDPPublisher creates and initializes a new UDPPublisher.
// If the provided interval is invalid (<= 0), it defaults to 16ms (~60Hz).
func NewUDPPublisher(interval time.Duration, sender PacketSender, provider transport.FrameProvider) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if provider == nil {
		return nil, fmt.Errorf("UDPPublisher: frame provider cannot be nil")
	}

	width := provider.Width()
	if width > math.MaxUint16 {
		return nil, fmt.Errorf("UDPPublisher: output width %d exceeds packet limit %d", width, math.MaxUint16)
	}

	if interval <= 0 {
		interval = 16 * time.Millisecond
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}

	applog.Infof("UDPPublisher: Initializing (Interval: %s, Width: %d)", interval, width)

	return &UDPPublisher{
		sender:     sender,
		provider:   provider,
		interval:   interval,
		magnitudes: make([]float32, width),
		packet:     make([]byte, 0, HeaderSize+4*width),
	}, nil
}

// Start begins the periodic publishing process. Subsequent calls are no-ops
// while running.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Local copies for the goroutine avoid races on p.ticker/p.doneChan.
	ticker := p.ticker
	doneChan := p.doneChan

	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Debugf("UDPPublisher: Publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket(time.Now())
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it to exit.
// Subsequent calls are no-ops.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})

	p.mu.Unlock()

	p.wg.Wait()
	applog.Infof("UDPPublisher: Stopped after %d packets", p.sequenceNum)
	return nil
}

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Magnitude Count   | uint16         | 2            | Number of floats (M)    |
| Magnitudes        | []float32      | M * 4        | Output magnitudes       |
+-----------------------------------------------------------------------------+
*/

// buildAndSendPacket fetches the latest magnitudes, packs them with the
// header and sends the packet. Errors are logged; the next tick retries.
func (p *UDPPublisher) buildAndSendPacket(now time.Time) {
	if _, err := p.provider.LatestInto(p.magnitudes); err != nil {
		applog.Errorf("UDPPublisher: Error getting magnitudes: %v", err)
		return
	}

	p.sequenceNum++
	p.packet = AppendPacket(p.packet[:0], p.sequenceNum, now.UnixNano(), p.magnitudes)

	if err := p.sender.Send(p.packet); err != nil {
		return // Sender logs its own errors
	}
	applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, len(p.packet))
}

// AppendPacket appends one encoded packet to dst and returns the result.
func AppendPacket(dst []byte, seq uint32, timestamp int64, magnitudes []float32) []byte {
	dst = binary.BigEndian.AppendUint32(dst, seq)
	dst = binary.BigEndian.AppendUint64(dst, uint64(timestamp))
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(magnitudes)))
	for _, v := range magnitudes {
		dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}

// Packet is a decoded UDP packet.
type Packet struct {
	Seq        uint32
	Timestamp  int64
	Magnitudes []float32
}

// DecodePacket parses one packet produced by AppendPacket.
func DecodePacket(data []byte) (Packet, error) {
	if len(data) < HeaderSize {
		return Packet{}, ErrShortPacket
	}

	pkt := Packet{
		Seq:       binary.BigEndian.Uint32(data[0:4]),
		Timestamp: int64(binary.BigEndian.Uint64(data[4:12])),
	}
	count := int(binary.BigEndian.Uint16(data[12:14]))

	payload := data[HeaderSize:]
	if len(payload) < 4*count {
		return Packet{}, fmt.Errorf("%w: %d magnitudes declared, %d bytes of payload", ErrShortPacket, count, len(payload))
	}

	pkt.Magnitudes = make([]float32, count)
	for i := range pkt.Magnitudes {
		pkt.Magnitudes[i] = math.Float32frombits(binary.BigEndian.Uint32(payload[4*i:]))
	}
	return pkt, nil
}

// Close implements the io.Closer interface. It gracefully stops the publisher goroutine.
func (p *UDPPublisher) Close() error {
	return p.Stop()
}

// Ensure UDPPublisher satisfies the io.Closer interface at compile time.
var _ interface{ Close() error } = (*UDPPublisher)(nil)
