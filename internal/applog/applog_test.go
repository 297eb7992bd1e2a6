package applog

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wendelmax/tasklets-go/internal/config"
)

func TestLevelForMapping(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LevelFor(config.LogDebug))
	assert.Equal(t, slog.LevelInfo, LevelFor(config.LogInfo))
	assert.Equal(t, slog.LevelWarn, LevelFor(config.LogWarn))
	assert.Equal(t, slog.LevelError, LevelFor(config.LogError))
	assert.Greater(t, int(LevelFor(config.LogOff)), int(slog.LevelError))
	assert.Less(t, int(LevelFor(config.LogTrace)), int(slog.LevelDebug))
}

func TestNewTagsPoolID(t *testing.T) {
	l := New(config.LogInfo, "pool-1")
	assert.NotNil(t, l)
}
