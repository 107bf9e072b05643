// Package monitoring holds the diagnostic logger shared by the density packages.
package monitoring

import (
	"log"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

var verbose atomic.Bool

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetVerbose turns trace output on or off. Estimation calls read the flag
// concurrently, so it is stored atomically.
func SetVerbose(on bool) {
	verbose.Store(on)
}

// Verbose reports whether trace output is enabled.
func Verbose() bool {
	return verbose.Load()
}

// Tracef logs through Logf only when verbose output is enabled.
func Tracef(format string, v ...interface{}) {
	if !verbose.Load() {
		return
	}
	Logf("[trace] "+format, v...)
}
