package tracing

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_NoEndpoint(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	p, err := Setup(context.Background(), Config{ServiceName: "test"}, logger)
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), "op")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSetup_WithEndpoint(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	p, err := Setup(context.Background(), Config{
		Endpoint:    "http://127.0.0.1:1/v1/traces",
		ServiceName: "test",
	}, logger)
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), "op")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Export to an unreachable collector fails; shutdown must still return.
	_ = p.Shutdown(ctx)
}
