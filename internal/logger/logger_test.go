package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		" WARN ":  zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"Info":    zapcore.InfoLevel,
		"\tdebug": zapcore.DebugLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok, s)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("panic")
	require.False(t, ok)

	_, ok = ParseLogLevel("unknown")
	require.False(t, ok)
}

// TestContextHelpers checks that named loggers and key-value pairs travel with the context.
func TestContextHelpers(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	l := NewWithSink(zapcore.AddSync(&buf), zap.NewAtomicLevelAt(zapcore.DebugLevel))

	ctx := ToContext(context.Background(), l)
	ctx = WithName(ctx, "packager")
	ctx = WithKV(ctx, "version", "1.1.0")
	ctx = WithFields(ctx, zap.String("step", "extract"))

	InfoKV(ctx, "Extracting archive", "path", "windsurf.AppDir")

	out := buf.String()
	require.Contains(t, out, "packager")
	require.Contains(t, out, "Extracting archive")
	require.Contains(t, out, "1.1.0")
	require.Contains(t, out, "extract")
	require.Contains(t, out, "windsurf.AppDir")
}

// TestFromContextFallsBackToGlobal ensures an empty context yields the global logger.
func TestFromContextFallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))
}
