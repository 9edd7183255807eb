package machowriter

import (
	"fmt"
	"os"
)

// Logger receives the "logged, non-fatal" diagnostics of spec.md §7:
// links whose endpoints could not be resolved. The writer proceeds and
// the output stays structurally valid but semantically incomplete for
// that link.
type Logger interface {
	Logf(format string, args ...any)
}

// stderrLogger is the default Logger, matching the unadorned
// fmt.Fprintf(os.Stderr, ...) logging style used throughout this pack
// (e.g. dr2chase-split-dwarf's note/fail helpers) rather than pulling in
// a structured-logging dependency none of the retrieved repos use.
type stderrLogger struct{}

func (stderrLogger) Logf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

// DefaultLogger is the Logger used when no Options.Logger is supplied.
var DefaultLogger Logger = stderrLogger{}

// NopLogger discards all diagnostics.
type NopLogger struct{}

func (NopLogger) Logf(string, ...any) {}
