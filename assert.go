package jdz

import "fmt"

// assert guards structural invariants (span alignment, block counts, list
// consistency) that are intended to fire only on bugs, never in the course
// of normal operation -- the same role runtime.throw plays in the Go
// runtime's own allocator.
func assert(cond bool, msg string) {
	if !cond {
		panic("jdz: assertion failed: " + msg)
	}
}

func assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("jdz: assertion failed: "+format, args...))
	}
}
