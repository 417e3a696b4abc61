package visualiser

import (
	"io"

	"github.com/banshee-data/airwrite/internal/monitoring"
)

var logs = monitoring.NewStreamLogger("[visualiser] ")

// SetLogWriters routes the visualiser package's ops, diag and trace streams. A nil
// writer disables that stream.
func SetLogWriters(ops, diag, trace io.Writer) { logs.SetWriters(ops, diag, trace) }

// opsf: client stream errors.
func opsf(format string, args ...interface{}) { logs.Opsf(format, args...) }

// diagf: client connects, disconnects and advertisement.
func diagf(format string, args ...interface{}) { logs.Diagf(format, args...) }

// tracef: per-snapshot fan-out.
func tracef(format string, args ...interface{}) { logs.Tracef(format, args...) }
