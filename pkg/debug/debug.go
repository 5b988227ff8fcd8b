// Package debug provides global debug logging flags
package debug

import (
	"fmt"
	"io"
	"os"
)

// Enabled controls whether debug logging is active
var Enabled bool

// Detection controls per-contour detection traces (very verbose, one line per region).
// Use --debug-detect to enable.
var Detection bool

// Out is where debug lines are written. Stderr keeps stdout free for plate output.
var Out io.Writer = os.Stderr

// Log prints a message only if debug mode is enabled
func Log(format string, args ...interface{}) {
	if Enabled {
		fmt.Fprintf(Out, format, args...)
	}
}

// Logln prints a message with newline only if debug mode is enabled
func Logln(msg string) {
	if Enabled {
		fmt.Fprintln(Out, msg)
	}
}

// DetectLog prints a message only if detection tracing is enabled
func DetectLog(format string, args ...interface{}) {
	if Detection {
		fmt.Fprintf(Out, format, args...)
	}
}
