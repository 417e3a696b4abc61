package session

import (
	"io"

	"github.com/banshee-data/airwrite/internal/monitoring"
)

var logs = monitoring.NewStreamLogger("[session] ")

// SetLogWriters routes the session package's ops, diag and trace streams. A nil
// writer disables that stream.
func SetLogWriters(ops, diag, trace io.Writer) { logs.SetWriters(ops, diag, trace) }

// opsf: resource release failures and render errors.
func opsf(format string, args ...interface{}) { logs.Opsf(format, args...) }

// diagf: session lifecycle.
func diagf(format string, args ...interface{}) { logs.Diagf(format, args...) }

// tracef: per-frame outcomes.
func tracef(format string, args ...interface{}) { logs.Tracef(format, args...) }
