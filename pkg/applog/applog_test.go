package applog

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext_Default(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))
}

func TestCustomLevels(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(NewHandler(&buf, LevelTrace, true))
	ctx := WithLogger(context.Background(), l)
	require.Same(t, l, FromContext(ctx))

	Trace(ctx, "trace msg")
	Security(ctx, "login refused", "user", "bob")
	Critical(ctx, "disk gone")

	var levels []string
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var rec map[string]any
		require.NoError(t, dec.Decode(&rec))
		levels = append(levels, rec["level"].(string))
	}
	assert.Equal(t, []string{"TRACE", "SECURITY", "CRITICAL"}, levels)
}

func TestHandlerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), slog.New(NewHandler(&buf, LevelInfo, false)))

	Trace(ctx, "hidden")
	FromContext(ctx).Debug("hidden too")
	assert.Zero(t, buf.Len())

	Security(ctx, "shown")
	assert.Contains(t, buf.String(), "level=SECURITY")
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"trace":    LevelTrace,
		"Warning":  LevelWarning,
		"warn":     LevelWarning,
		"CRITICAL": LevelCritical,
		"":         LevelInfo,
	} {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}
