package ioctx

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreams(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, io.Discard, Stdout(ctx))
	assert.Equal(t, io.Discard, Stderr(ctx))

	var out, errs bytes.Buffer
	ctx = WithStdout(ctx, &out)
	ctx = WithStderr(ctx, &errs)
	_, _ = io.WriteString(Stdout(ctx), "answer")
	_, _ = io.WriteString(Stderr(ctx), "warning")
	assert.Equal(t, "answer", out.String())
	assert.Equal(t, "warning", errs.String())
}
