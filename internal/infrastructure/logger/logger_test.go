package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Run("creates console logger", func(t *testing.T) {
		logger, err := New(&Config{Level: "debug", Format: "console", Output: "stdout"})
		require.NoError(t, err)
		assert.NotNil(t, logger)
	})

	t.Run("creates json logger", func(t *testing.T) {
		logger, err := New(&Config{Level: "info", Format: "json", Output: "stdout"})
		require.NoError(t, err)
		assert.NotNil(t, logger)
	})

	t.Run("empty output falls back to stdout", func(t *testing.T) {
		logger, err := New(&Config{Level: "info", Format: "json"})
		require.NoError(t, err)
		assert.NotNil(t, logger)
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"ERROR", zapcore.ErrorLevel},
		{"unknown", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, parseLevel(tt.input), "level %q", tt.input)
	}
}

func TestContext(t *testing.T) {
	t.Run("FromContext returns nop logger when absent", func(t *testing.T) {
		logger := FromContext(context.Background())
		assert.NotNil(t, logger)
	})

	t.Run("round-trips logger through context", func(t *testing.T) {
		base := zap.NewNop()

		ctx := WithContext(context.Background(), base)
		assert.Same(t, base, FromContext(ctx))
	})

	t.Run("WithRequestID stores the ID", func(t *testing.T) {
		ctx, enriched := WithRequestID(context.Background(), zap.NewNop(), "req-123")
		assert.NotNil(t, enriched)
		assert.Equal(t, "req-123", GetRequestID(ctx))
	})

	t.Run("WithTenantID stores the ID", func(t *testing.T) {
		ctx, _ := WithTenantID(context.Background(), zap.NewNop(), "tenant-42")
		assert.Equal(t, "tenant-42", GetTenantID(ctx))
	})

	t.Run("missing IDs come back empty", func(t *testing.T) {
		assert.Equal(t, "", GetRequestID(context.Background()))
		assert.Equal(t, "", GetTenantID(context.Background()))
	})
}
