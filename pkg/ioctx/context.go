// Package ioctx carries a command's output streams on a context.
package ioctx

import (
	"context"
	"io"
)

type streamKey int

const (
	stdoutKey streamKey = iota
	stderrKey
)

func stream(ctx context.Context, key streamKey) io.Writer {
	if w, ok := ctx.Value(key).(io.Writer); ok {
		return w
	}
	return io.Discard
}

// Stdout returns the writer answers are printed to, or io.Discard.
func Stdout(ctx context.Context) io.Writer {
	return stream(ctx, stdoutKey)
}

// WithStdout sets the writer returned by Stdout.
func WithStdout(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, stdoutKey, w)
}

// Stderr returns the writer diagnostics are printed to, or io.Discard.
func Stderr(ctx context.Context) io.Writer {
	return stream(ctx, stderrKey)
}

// WithStderr sets the writer returned by Stderr.
func WithStderr(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, stderrKey, w)
}
