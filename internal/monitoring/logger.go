// Package monitoring owns process-wide log routing: the pluggable Logf used
// by the cmd binary and the three log streams handed to each package's
// SetLogWriters.
package monitoring

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Level selects which streams are written.
type Level int

const (
	// LevelOps writes only actionable warnings and errors.
	LevelOps Level = iota
	// LevelDiag adds day-to-day diagnostics.
	LevelDiag
	// LevelTrace adds per-frame telemetry.
	LevelTrace
)

// ParseLevel accepts "ops", "diag" or "trace".
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ops", "":
		return LevelOps, nil
	case "diag":
		return LevelDiag, nil
	case "trace":
		return LevelTrace, nil
	}
	return LevelOps, fmt.Errorf("unknown log level %q (want ops, diag or trace)", s)
}

func (l Level) String() string {
	switch l {
	case LevelOps:
		return "ops"
	case LevelDiag:
		return "diag"
	case LevelTrace:
		return "trace"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Streams are the writers handed to each package's SetLogWriters. A nil
// writer disables that stream.
type Streams struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

// NewStreams routes every enabled stream at level to w.
func NewStreams(w io.Writer, level Level) Streams {
	s := Streams{Ops: w}
	if level >= LevelDiag {
		s.Diag = w
	}
	if level >= LevelTrace {
		s.Trace = w
	}
	return s
}

// Apply calls each setter with the streams.
func (s Streams) Apply(setters ...func(ops, diag, trace io.Writer)) {
	for _, set := range setters {
		set(s.Ops, s.Diag, s.Trace)
	}
}

// StreamLogger is a package's handle on the three streams. Writers may be
// swapped while other goroutines log.
type StreamLogger struct {
	prefix string
	ops    atomic.Pointer[log.Logger]
	diag   atomic.Pointer[log.Logger]
	trace  atomic.Pointer[log.Logger]
}

// NewStreamLogger returns a logger with every stream disabled.
func NewStreamLogger(prefix string) *StreamLogger {
	return &StreamLogger{prefix: prefix}
}

// SetWriters replaces the stream writers. A nil writer disables its stream.
func (l *StreamLogger) SetWriters(ops, diag, trace io.Writer) {
	l.ops.Store(l.newLogger(ops))
	l.diag.Store(l.newLogger(diag))
	l.trace.Store(l.newLogger(trace))
}

func (l *StreamLogger) newLogger(w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, l.prefix, log.LstdFlags|log.Lmicroseconds)
}

func printf(p *atomic.Pointer[log.Logger], format string, args []interface{}) {
	if lg := p.Load(); lg != nil {
		lg.Printf(format, args...)
	}
}

// Opsf writes to the ops stream.
func (l *StreamLogger) Opsf(format string, args ...interface{}) { printf(&l.ops, format, args) }

// Diagf writes to the diag stream.
func (l *StreamLogger) Diagf(format string, args ...interface{}) { printf(&l.diag, format, args) }

// Tracef writes to the trace stream.
func (l *StreamLogger) Tracef(format string, args ...interface{}) { printf(&l.trace, format, args) }
