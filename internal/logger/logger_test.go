package logger_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jnst/event-sourcing-pattern/internal/logger"
)

func TestSetupLevels(t *testing.T) {
	ctx := context.Background()

	debug := logger.Setup("debug")
	assert.True(t, debug.Enabled(ctx, slog.LevelDebug))

	warn := logger.Setup("warn")
	assert.False(t, warn.Enabled(ctx, slog.LevelInfo))
	assert.True(t, warn.Enabled(ctx, slog.LevelWarn))

	unknown := logger.Setup("verbose")
	assert.True(t, unknown.Enabled(ctx, slog.LevelInfo))
	assert.False(t, unknown.Enabled(ctx, slog.LevelDebug))
}
