//go:build !nutmegfast

package assert

// Invariant panics with a formatted message if cond is false. Unlike
// Require, Invariant is compiled out entirely (see invariant_fast.go) when
// the binary is built with -tags nutmegfast, for expensive consistency
// checks that are only worth paying for in development and testing.
func Invariant(cond bool, format string, args ...interface{}) {
	Require(cond, format, args...)
}
