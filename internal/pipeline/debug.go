package pipeline

import (
	"io"

	"github.com/banshee-data/airwrite/internal/monitoring"
)

var logs = monitoring.NewStreamLogger("[pipeline] ")

// SetLogWriters routes the pipeline package's ops, diag and trace streams. A nil
// writer disables that stream.
func SetLogWriters(ops, diag, trace io.Writer) { logs.SetWriters(ops, diag, trace) }

// opsf: estimator failures and panics.
func opsf(format string, args ...interface{}) { logs.Opsf(format, args...) }

// diagf: configuration changes and drop summaries.
func diagf(format string, args ...interface{}) { logs.Diagf(format, args...) }

// tracef: one line per frame.
func tracef(format string, args ...interface{}) { logs.Tracef(format, args...) }
