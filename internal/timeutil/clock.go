package timeutil

import "time"

// bootTime is recorded at process start. There is no battery-backed clock on
// this target (spec Non-goals), so every timestamp in this module is
// relative to boot rather than wall-clock time.
var bootTime = time.Now()

// NowMs returns milliseconds elapsed since boot.
func NowMs() int64 { return time.Since(bootTime).Milliseconds() }
