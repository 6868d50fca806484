// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"net"
	"sync"
	"testing"
	"time"
)

type fakeProvider struct {
	mu     sync.Mutex
	values []float32
	err    error
}

func (f *fakeProvider) Width() int { return len(f.values) }

func (f *fakeProvider) LatestInto(dst []float32) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	copy(dst, f.values)
	return 1, nil
}

type recordingSender struct {
	mu      sync.Mutex
	packets [][]byte
}

func (r *recordingSender) Send(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.packets = append(r.packets, append([]byte(nil), data...))
	return nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.packets)
}

func TestPacketLayout(t *testing.T) {
	magnitudes := []float32{0, 0.25, 1}
	packet := AppendPacket(nil, 42, 1234567890, magnitudes)

	if len(packet) != HeaderSize+4*len(magnitudes) {
		t.Fatalf("packet length = %d, want %d", len(packet), HeaderSize+4*len(magnitudes))
	}
	// Sequence number, big endian.
	if packet[0] != 0 || packet[3] != 42 {
		t.Errorf("sequence bytes = % x", packet[0:4])
	}
	// Count field.
	if packet[12] != 0 || packet[13] != 3 {
		t.Errorf("count bytes = % x", packet[12:14])
	}

	pkt, err := DecodePacket(packet)
	if err != nil {
		t.Fatalf("DecodePacket() error = %v", err)
	}
	if pkt.Seq != 42 || pkt.Timestamp != 1234567890 {
		t.Errorf("header = %d/%d", pkt.Seq, pkt.Timestamp)
	}
	for i, v := range magnitudes {
		if pkt.Magnitudes[i] != v {
			t.Errorf("magnitude %d = %f, want %f", i, pkt.Magnitudes[i], v)
		}
	}
}

func TestDecodePacketShort(t *testing.T) {
	if _, err := DecodePacket(make([]byte, 5)); !errors.Is(err, ErrShortPacket) {
		t.Errorf("short header error = %v", err)
	}

	packet := AppendPacket(nil, 1, 0, []float32{1, 2})
	if _, err := DecodePacket(packet[:len(packet)-1]); !errors.Is(err, ErrShortPacket) {
		t.Errorf("short payload error = %v", err)
	}
}

func TestNewUDPPublisherValidation(t *testing.T) {
	if _, err := NewUDPPublisher(time.Millisecond, nil, &fakeProvider{}); err == nil {
		t.Error("nil sender should fail")
	}
	if _, err := NewUDPPublisher(time.Millisecond, &recordingSender{}, nil); err == nil {
		t.Error("nil provider should fail")
	}
	if _, err := NewUDPPublisher(time.Millisecond, &recordingSender{}, &fakeProvider{values: make([]float32, 70000)}); err == nil {
		t.Error("width above uint16 should fail")
	}

	p, err := NewUDPPublisher(0, &recordingSender{}, &fakeProvider{})
	if err != nil {
		t.Fatalf("NewUDPPublisher() error = %v", err)
	}
	if p.interval != 16*time.Millisecond {
		t.Errorf("default interval = %s, want 16ms", p.interval)
	}
}

func TestBuildAndSendPacket(t *testing.T) {
	sender := &recordingSender{}
	provider := &fakeProvider{values: []float32{0.1, 0.9, 0.9, 0.1}}

	p, err := NewUDPPublisher(time.Second, sender, provider)
	if err != nil {
		t.Fatalf("NewUDPPublisher() error = %v", err)
	}

	now := time.Unix(100, 5)
	p.buildAndSendPacket(now)
	p.buildAndSendPacket(now)

	if sender.count() != 2 {
		t.Fatalf("sent %d packets, want 2", sender.count())
	}
	pkt, err := DecodePacket(sender.packets[1])
	if err != nil {
		t.Fatalf("DecodePacket() error = %v", err)
	}
	if pkt.Seq != 2 || pkt.Timestamp != now.UnixNano() {
		t.Errorf("second packet header = %d/%d", pkt.Seq, pkt.Timestamp)
	}
	if len(pkt.Magnitudes) != 4 || pkt.Magnitudes[1] != 0.9 {
		t.Errorf("magnitudes = %v", pkt.Magnitudes)
	}

	provider.err = errors.New("engine closed")
	p.buildAndSendPacket(now)
	if sender.count() != 2 {
		t.Errorf("packet sent despite provider error")
	}

	allocs := testing.AllocsPerRun(100, func() {
		p.packet = AppendPacket(p.packet[:0], 1, 0, p.magnitudes)
	})
	if allocs > 0 {
		t.Errorf("packet encoding allocated memory: got %.1f allocs, want 0", allocs)
	}
}

func TestPublisherStartStop(t *testing.T) {
	sender := &recordingSender{}
	p, err := NewUDPPublisher(time.Millisecond, sender, &fakeProvider{values: []float32{0.5}})
	if err != nil {
		t.Fatalf("NewUDPPublisher() error = %v", err)
	}

	p.Start()
	p.Start() // No-op while running

	deadline := time.Now().Add(2 * time.Second)
	for sender.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close() after Stop() error = %v", err)
	}

	if sender.count() < 3 {
		t.Errorf("sent %d packets, want at least 3", sender.count())
	}
	after := sender.count()
	time.Sleep(10 * time.Millisecond)
	if sender.count() != after {
		t.Error("packets sent after Stop()")
	}
}

func TestUDPSenderRoundTrip(t *testing.T) {
	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP() error = %v", err)
	}
	defer listener.Close()

	sender, err := NewUDPSender(listener.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewUDPSender() error = %v", err)
	}
	if sender.Target() != listener.LocalAddr().String() {
		t.Errorf("Target() = %s, want %s", sender.Target(), listener.LocalAddr())
	}

	packet := AppendPacket(nil, 9, 1, []float32{0.5, 0.5})
	if err := sender.Send(packet); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	buf := make([]byte, 1024)
	listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := listener.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("ReadFromUDP() error = %v", err)
	}
	pkt, err := DecodePacket(buf[:n])
	if err != nil {
		t.Fatalf("DecodePacket() error = %v", err)
	}
	if pkt.Seq != 9 || len(pkt.Magnitudes) != 2 {
		t.Errorf("received %+v", pkt)
	}

	if err := sender.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := sender.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := sender.Send(packet); !errors.Is(err, ErrSenderClosed) {
		t.Errorf("Send() after Close() error = %v, want ErrSenderClosed", err)
	}
}

func TestNewUDPSenderBadAddress(t *testing.T) {
	if _, err := NewUDPSender("not an address"); err == nil {
		t.Error("NewUDPSender() with bad address should fail")
	}
}
