// Package assert provides the engine's two-tier fatal-error posture: a
// programming-error bug surfaces as a panic carrying a diagnostic message,
// never as a recoverable error value. Require always checks; Invariant is
// its debug-only analogue, compiled out entirely when the importing binary
// is built with the nutmegfast tag, mirroring the release_assert/
// debug_assert split in the original C++ implementation's Model-*.cpp
// files.
package assert

import "fmt"

// Require panics with a formatted message if cond is false. Use for
// conditions that must hold regardless of build configuration: invalid
// bounds, foreign-model variable references, malformed conflict atoms.
func Require(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf("nutmeg: "+format, args...))
	}
}
