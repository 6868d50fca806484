// SPDX-License-Identifier: MIT
package transport

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func dialTestClient(t *testing.T, wst *WebSocketTransport) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+wst.Addr()+WebSocketPath, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	waitFor(t, func() bool { return wst.ClientCount() == 1 })
	return conn
}

func TestFramePeak(t *testing.T) {
	f := Frame{Magnitudes: []float32{0.1, 0.7, 0.3}}
	if f.Peak() != 0.7 {
		t.Errorf("Peak() = %f, want 0.7", f.Peak())
	}
	if (Frame{}).Peak() != 0 {
		t.Error("Peak() of empty frame should be 0")
	}
}

func TestLoggingTransport(t *testing.T) {
	lt := NewLoggingTransport(2)
	for i := range 5 {
		if err := lt.Send(Frame{Seq: uint64(i)}); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}
	if err := lt.Send("not a frame"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if lt.Sent() != 6 {
		t.Errorf("Sent() = %d, want 6", lt.Sent())
	}
	if err := lt.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestWebSocketBroadcast(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0", 0)
	if err != nil {
		t.Fatalf("NewWebSocketTransport() error = %v", err)
	}
	defer wst.Close()

	conn := dialTestClient(t, wst)

	sent := Frame{Seq: 7, Paused: true, Magnitudes: []float32{0, 0.5, 0.5, 0}}
	if err := wst.Send(sent); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Frame
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}

	if got.Seq != 7 || !got.Paused || len(got.Magnitudes) != 4 || got.Magnitudes[1] != 0.5 {
		t.Errorf("received %+v, want %+v", got, sent)
	}
}

func TestWebSocketRateLimit(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0", time.Hour)
	if err != nil {
		t.Fatalf("NewWebSocketTransport() error = %v", err)
	}
	defer wst.Close()

	conn := dialTestClient(t, wst)

	wst.Send(Frame{Seq: 1})
	wst.Send(Frame{Seq: 2}) // Dropped by the rate limit

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first Frame
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if first.Seq != 1 {
		t.Errorf("first frame seq = %d, want 1", first.Seq)
	}

	conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	var second Frame
	if err := conn.ReadJSON(&second); err == nil {
		t.Errorf("rate-limited frame was delivered: %+v", second)
	}
}

// readFrames reads until n frames arrived or the connection goes quiet.
func readFrames(conn *websocket.Conn, n int) []Frame {
	var frames []Frame
	for len(frames) < n {
		conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		var f Frame
		if err := conn.ReadJSON(&f); err != nil {
			break
		}
		frames = append(frames, f)
	}
	return frames
}

func TestWebSocketTickerDelivery(t *testing.T) {
	const (
		frames   = 100
		interval = 5 * time.Millisecond
	)

	wst, err := NewWebSocketTransport("127.0.0.1:0", 0)
	if err != nil {
		t.Fatalf("NewWebSocketTransport() error = %v", err)
	}
	defer wst.Close()

	conn := dialTestClient(t, wst)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for i := range frames {
			<-ticker.C
			wst.Send(Frame{Seq: uint64(i + 1)})
		}
	}()

	got := readFrames(conn, frames)
	if len(got) != frames {
		t.Fatalf("client received %d of %d frames sent on a %v ticker", len(got), frames, interval)
	}
	for i, f := range got {
		if f.Seq != uint64(i+1) {
			t.Fatalf("frame %d has seq %d, want %d", i, f.Seq, i+1)
		}
	}
}

func TestWebSocketPauseChangeBypassesRateLimit(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0", time.Hour)
	if err != nil {
		t.Fatalf("NewWebSocketTransport() error = %v", err)
	}
	defer wst.Close()

	conn := dialTestClient(t, wst)

	wst.Send(Frame{Seq: 1})
	wst.Send(Frame{Seq: 2})               // Dropped by the rate limit
	wst.Send(Frame{Seq: 2, Paused: true}) // Pause state changed
	wst.Send(Frame{Seq: 2, Paused: true}) // Dropped by the rate limit
	wst.Send(Frame{Seq: 2})               // Resumed

	got := readFrames(conn, 4)
	if len(got) != 3 {
		t.Fatalf("received %d frames, want 3: %+v", len(got), got)
	}
	wantPaused := []bool{false, true, false}
	for i, f := range got {
		if f.Paused != wantPaused[i] {
			t.Errorf("frame %d paused = %v, want %v", i, f.Paused, wantPaused[i])
		}
	}
}

func TestWebSocketClientDisconnect(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0", 0)
	if err != nil {
		t.Fatalf("NewWebSocketTransport() error = %v", err)
	}
	defer wst.Close()

	conn := dialTestClient(t, wst)
	conn.Close()

	waitFor(t, func() bool { return wst.ClientCount() == 0 })
}

func TestWebSocketClose(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0", 0)
	if err != nil {
		t.Fatalf("NewWebSocketTransport() error = %v", err)
	}

	if err := wst.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := wst.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := wst.Send(Frame{}); err == nil {
		t.Error("Send() after Close() should fail")
	}
}

func TestWebSocketListenError(t *testing.T) {
	if _, err := NewWebSocketTransport("256.0.0.1:bad", 0); err == nil {
		t.Error("NewWebSocketTransport() with invalid address should fail")
	}
}
