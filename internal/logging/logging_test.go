package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNew_Levels(t *testing.T) {
	ctx := context.Background()

	assert.True(t, New("debug", "text").Enabled(ctx, slog.LevelDebug))
	assert.False(t, New("error", "text").Enabled(ctx, slog.LevelInfo))
	assert.False(t, New("", "json").Enabled(ctx, slog.LevelDebug))
}

func TestNewWithWriter_JSONCarriesServiceAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info", "json")

	ctx := WithLogger(WithRequestID(context.Background(), "req-456"), logger)
	L(ctx).Info("transaction rejected", "transaction_id", "TXN-1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "txguard", line["service"])
	assert.Equal(t, "req-456", line["request_id"])
	assert.Equal(t, "TXN-1", line["transaction_id"])
	assert.Equal(t, "transaction rejected", line["msg"])
}

func TestL_WithoutRequestID(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), NewWithWriter(&buf, "info", "text"))

	L(ctx).Info("hello")
	assert.NotContains(t, buf.String(), "request_id")
	assert.Contains(t, buf.String(), "service=txguard")
}

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestID(ctx))

	ctx = WithRequestID(ctx, "first")
	ctx = WithRequestID(ctx, "second")
	assert.Equal(t, "second", RequestID(ctx))
}

func TestFromContext_Default(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))

	custom := New("debug", "json")
	assert.Same(t, custom, FromContext(WithLogger(context.Background(), custom)))
}
