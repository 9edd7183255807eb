// Package codegen is the public entry point of the Mach-O object-file
// backend: it takes a resolved artifact.Artifact and serializes it to a
// bit-exact MH_OBJECT image.
package codegen

import (
	"context"
	"fmt"

	"github.com/arc-language/macho-object-writer/artifact"
	"github.com/arc-language/macho-object-writer/internal/machowriter"
)

// Logger receives non-fatal diagnostics (unresolved link endpoints).
// It is the same shape machowriter.Logger exposes internally; re-exported
// here so callers never need to import the internal package.
type Logger = machowriter.Logger

// NopLogger discards all diagnostics.
type NopLogger = machowriter.NopLogger

// Options controls ToBytes. The zero value logs to stderr.
type Options struct {
	Logger Logger
}

// ToBytes compiles art into a Mach-O MH_OBJECT relocatable object file.
//
// ctx is checked once, at entry, for cancellation; the pipeline itself is
// synchronous CPU work with no intermediate cancellation points. A
// malformed artifact (bad alignment, an unresolvable relocation dispatch,
// an unknown architecture) surfaces as a normal error, not a panic: the
// fatal conditions raised inside internal/machowriter are recovered here.
func ToBytes(ctx context.Context, art artifact.Artifact, opts Options) (out []byte, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = machowriter.DefaultLogger
	}

	defer func() {
		if r := recover(); r != nil {
			if ferr, ok := r.(error); ok {
				err = fmt.Errorf("machowriter: %w", ferr)
				return
			}
			panic(r)
		}
	}()

	return machowriter.ToBytes(art, logger), nil
}
