// SPDX-License-Identifier: MIT
//
// Package log is a leveled wrapper over the standard logger. Messages carry a
// component prefix by convention ("Engine: ...", "UDPPublisher: ...") and a
// bracketed level tag padded to a fixed width so message columns line up:
//
//	2025/04/13 15:04:05.000000 [INFO]  Engine: Frame loop started
//	2025/04/13 15:04:05.016667 [DEBUG] Pipeline: frame 60, 128 bins kept, peak 0.812 at bin 14, avg 41µs
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync/atomic"
)

// LogLevel defines the severity of a log message.
type LogLevel uint32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = [...]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
	LevelFatal: "FATAL",
}

func (l LogLevel) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "UNKNOWN"
}

// tag returns the bracketed level padded to the widest tag.
func (l LogLevel) tag() string {
	return fmt.Sprintf("%-7s", "["+l.String()+"]")
}

// ParseLevel converts a case-insensitive level name. "warning" is accepted
// for LevelWarn. Unknown names return LevelInfo and false.
func ParseLevel(name string) (LogLevel, bool) {
	upper := strings.ToUpper(name)
	if upper == "WARNING" {
		return LevelWarn, true
	}
	for l, n := range levelNames {
		if n == upper {
			return LogLevel(l), true
		}
	}
	return LevelInfo, false
}

var (
	currentLevel atomic.Uint32
	logger       = stdlog.New(os.Stderr, "", stdlog.Ldate|stdlog.Ltime|stdlog.Lmicroseconds)
)

func init() {
	SetLevel(LevelInfo)
}

func SetLevel(level LogLevel) {
	currentLevel.Store(uint32(level))
}

func GetLevel() LogLevel {
	return LogLevel(currentLevel.Load())
}

// SetOutput redirects all log output to w. The terminal preview sets
// io.Discard while it owns the screen.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// Enabled reports whether messages at level are currently written. Callers
// use it to skip building expensive debug arguments on hot paths.
func Enabled(level LogLevel) bool {
	return level >= GetLevel()
}

func output(level LogLevel, msg string) {
	if Enabled(level) {
		logger.Print(level.tag(), " ", msg)
	}
}

func Debugf(format string, v ...any) { output(LevelDebug, fmt.Sprintf(format, v...)) }
func Infof(format string, v ...any)  { output(LevelInfo, fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...any)  { output(LevelWarn, fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...any) { output(LevelError, fmt.Sprintf(format, v...)) }

func Debug(v ...any) { output(LevelDebug, fmt.Sprint(v...)) }
func Info(v ...any)  { output(LevelInfo, fmt.Sprint(v...)) }
func Warn(v ...any)  { output(LevelWarn, fmt.Sprint(v...)) }
func Error(v ...any) { output(LevelError, fmt.Sprint(v...)) }

// Fatalf logs regardless of level and exits with status 1.
func Fatalf(format string, v ...any) {
	logger.Fatal(LevelFatal.tag(), " ", fmt.Sprintf(format, v...))
}

// Fatal logs regardless of level and exits with status 1.
func Fatal(v ...any) {
	logger.Fatal(LevelFatal.tag(), " ", fmt.Sprint(v...))
}
