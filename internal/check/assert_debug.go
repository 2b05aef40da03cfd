//go:build debug

// Package check holds invariant assertions that only fire in builds tagged
// debug. Release builds compile them to nothing.
package check

import "fmt"

// Assert panics with msg when cond is false.
func Assert(cond bool, msg string) {
	if !cond {
		panic("pgd invariant violated: " + msg)
	}
}

func Assertf(cond bool, format string, args ...any) {
	if !cond {
		panic("pgd invariant violated: " + fmt.Sprintf(format, args...))
	}
}
