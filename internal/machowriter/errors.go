package machowriter

import "errors"

// Fatal error sentinels, per spec.md §7. These are layout-invariant
// violations or malformed caller input, not runtime conditions; the
// writer panics with one of these wrapped in a recoverable sentinel so
// codegen.ToBytes can recover them into a normal Go error at the
// package boundary.
var (
	ErrUnknownArchitecture  = errors.New("machowriter: unknown target architecture")
	ErrBadAlignment         = errors.New("machowriter: alignment is not a power of two")
	ErrUnsupportedRelocSize = errors.New("machowriter: unsupported relocation size")
	ErrUnsupportedRelocSpec = errors.New("machowriter: unsupported relocation spec/declaration combination")
	ErrRawReloc             = errors.New("machowriter: raw relocation code or addend out of range")
)

// fatalError is the panic value for a fatal condition; it unwraps to its
// sentinel. codegen.ToBytes recovers every error-valued panic, this one
// included, and does not tell them apart.
type fatalError struct {
	err error
}

func (e fatalError) Error() string { return e.err.Error() }
func (e fatalError) Unwrap() error { return e.err }

func panicFatal(sentinel error, detail string) {
	if detail != "" {
		panic(fatalError{err: wrapf(sentinel, detail)})
	}
	panic(fatalError{err: sentinel})
}

func wrapf(sentinel error, detail string) error {
	return &wrappedSentinel{sentinel: sentinel, detail: detail}
}

type wrappedSentinel struct {
	sentinel error
	detail   string
}

func (w *wrappedSentinel) Error() string { return w.sentinel.Error() + ": " + w.detail }
func (w *wrappedSentinel) Unwrap() error { return w.sentinel }
