// SPDX-License-Identifier: MIT
package log

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"visualizer/internal/pipeline"
)

func captureOutput(t *testing.T, level LogLevel) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := GetLevel()
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(prev)
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  LogLevel
		ok    bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"Warning", LevelWarn, true},
		{"warn", LevelWarn, true},
		{"error", LevelError, true},
		{"fatal", LevelFatal, true},
		{"loud", LevelInfo, false},
		{"", LevelInfo, false},
	}

	for _, tt := range tests {
		got, ok := ParseLevel(tt.input)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = %s, %v; want %s, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level LogLevel
		tag   string
	}{
		{LevelDebug, "[DEBUG]"},
		{LevelInfo, "[INFO] "},
		{LevelWarn, "[WARN] "},
		{LevelError, "[ERROR]"},
		{LevelFatal, "[FATAL]"},
		{LogLevel(42), "[UNKNOWN]"},
	}

	for _, tt := range tests {
		if got := tt.level.tag(); got != tt.tag {
			t.Errorf("%d.tag() = %q, want %q", tt.level, got, tt.tag)
		}
	}
}

func TestEnabled(t *testing.T) {
	captureOutput(t, LevelWarn)
	if Enabled(LevelInfo) || !Enabled(LevelWarn) || !Enabled(LevelError) {
		t.Errorf("Enabled() disagrees with level %s", GetLevel())
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := captureOutput(t, LevelWarn)

	Debugf("debug %d", 1)
	Infof("info %d", 2)
	Warnf("warn %d", 3)
	Error("error ", 4)

	out := buf.String()
	if strings.Contains(out, "debug 1") || strings.Contains(out, "info 2") {
		t.Errorf("messages below level were written: %q", out)
	}
	if !strings.Contains(out, "[WARN]  warn 3") {
		t.Errorf("warn message missing: %q", out)
	}
	if !strings.Contains(out, "[ERROR] error 4") {
		t.Errorf("error message missing: %q", out)
	}
}

func TestFrameLogger(t *testing.T) {
	buf := captureOutput(t, LevelDebug)

	fl := NewFrameLogger(3)
	for seq := uint64(1); seq <= 6; seq++ {
		fl.ObserveFrame(pipeline.FrameStats{
			Sequence: seq,
			Retained: 64,
			Peak:     0.5,
			PeakBin:  8,
			Duration: time.Millisecond,
		})
	}

	lines := strings.Count(buf.String(), "Pipeline: frame")
	if lines != 2 {
		t.Errorf("FrameLogger wrote %d lines, want 2: %q", lines, buf.String())
	}
	if !strings.Contains(buf.String(), "frame 6, 64 bins kept, peak 0.500 at bin 8, avg 1ms") {
		t.Errorf("unexpected frame line: %q", buf.String())
	}
}

func TestFrameLoggerQuietAboveDebug(t *testing.T) {
	buf := captureOutput(t, LevelInfo)

	var fl FrameLogger
	fl.ObserveFrame(pipeline.FrameStats{Sequence: 1, PeakBin: -1})

	if buf.Len() != 0 {
		t.Errorf("FrameLogger wrote at info level: %q", buf.String())
	}
}
