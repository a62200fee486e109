// Package debug holds global switches for high-rate diagnostic output.
package debug

import "fmt"

// Enabled is set by -debug.
var Enabled bool

// Motion controls per-frame motion detection logs (centroids, buffer state).
// Use -debug-motion to enable; these fire at camera rate.
var Motion bool

// Fusion controls per-tick fusion logs (source switches, target changes).
// Use -debug-fusion to enable.
var Fusion bool

// MotionLog prints a message only if motion debug mode is enabled
func MotionLog(format string, args ...interface{}) {
	if Motion {
		fmt.Printf(format, args...)
	}
}

// FusionLog prints a message only if fusion debug mode is enabled
func FusionLog(format string, args ...interface{}) {
	if Fusion {
		fmt.Printf(format, args...)
	}
}
