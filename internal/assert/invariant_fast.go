//go:build nutmegfast

package assert

// Invariant is a no-op under the nutmegfast build tag.
func Invariant(cond bool, format string, args ...interface{}) {}
