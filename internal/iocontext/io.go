// Package iocontext carries a command's I/O streams on its context so
// tests can capture output without touching os.Stdout.
package iocontext

import (
	"context"
	"fmt"
	"io"
	"os"
)

// IO bundles the streams a command renders to.
type IO struct {
	Out    io.Writer
	ErrOut io.Writer
	In     io.Reader
}

// DefaultIO returns the process streams.
func DefaultIO() *IO {
	return &IO{Out: os.Stdout, ErrOut: os.Stderr, In: os.Stdin}
}

type ioKey struct{}

// WithIO stores streams on the context.
func WithIO(ctx context.Context, streams *IO) context.Context {
	return context.WithValue(ctx, ioKey{}, streams)
}

// GetIO returns the context's streams, falling back to the process ones.
func GetIO(ctx context.Context) *IO {
	if streams, ok := ctx.Value(ioKey{}).(*IO); ok && streams != nil {
		return streams
	}
	return DefaultIO()
}

// Printf writes formatted text to stdout.
func (s *IO) Printf(format string, args ...any) {
	fmt.Fprintf(s.Out, format, args...)
}

// Errorf writes formatted text to stderr.
func (s *IO) Errorf(format string, args ...any) {
	fmt.Fprintf(s.ErrOut, format, args...)
}
