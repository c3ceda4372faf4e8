package monitoring

import (
	"log"
	"time"
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

// now is swapped in tests.
var now = time.Now

// Stage logs the start of a named gridding stage and returns a func that logs
// its elapsed time. Typical use: defer monitoring.Stage("index build")().
func Stage(name string) func() {
	start := now()
	Logf("[cygrid] %s: started", name)
	return func() {
		Logf("[cygrid] %s: done in %v", name, now().Sub(start))
	}
}
