package machowriter

import "fmt"

// alignToExp returns k such that a == 1<<k. a must be a power of two and
// nonzero; 0 or 1 are both treated as "no requirement" and return 0.
// A non-power-of-two is a layout bug (spec.md §7) and panics.
func alignToExp(a int) int {
	if a <= 1 {
		return 0
	}
	if a&(a-1) != 0 {
		panicFatal(ErrBadAlignment, fmt.Sprintf("%d", a))
	}
	k := 0
	for a > 1 {
		a >>= 1
		k++
	}
	return k
}

// padTo returns the number of padding bytes needed to bring relOffset to
// a multiple of 1<<alignExp.
func padTo(relOffset int, alignExp int) int {
	size := 1 << uint(alignExp)
	pad := size - (relOffset % size)
	if pad == size {
		return 0
	}
	return pad
}
