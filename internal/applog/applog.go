// Package applog wires the pool's log_level configuration option to
// log/slog, the same structured logger the teacher's controller used as
// a package-level `log = slog.Default()` (spec §6 log_level).
package applog

import (
	"log/slog"
	"os"

	"github.com/wendelmax/tasklets-go/internal/config"
)

// LevelFor maps the config.LogLevel enum to an slog.Level. config.LogOff
// maps to a level above slog's highest built-in (Error), so filtering it
// via HandlerOptions.Level silences everything short of a custom
// "fatal"-style record.
func LevelFor(l config.LogLevel) slog.Level {
	switch l {
	case config.LogTrace:
		return slog.LevelDebug - 4
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogInfo:
		return slog.LevelInfo
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	case config.LogOff:
		return slog.LevelError + 4
	default:
		return slog.LevelError
	}
}

// New builds a slog.Logger filtered to the configured level, tagged with
// a stable pool_id attribute so multi-pool processes can tell their logs
// apart.
func New(level config.LogLevel, poolID string) *slog.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: LevelFor(level)})
	return slog.New(handler).With("pool_id", poolID)
}

// ForWorker returns a child logger tagged with worker_id, used for
// per-worker lifecycle events (spawn, reclaim, crash).
func ForWorker(l *slog.Logger, workerID uint64) *slog.Logger {
	return l.With("worker_id", workerID)
}

// ForTask returns a child logger tagged with task_id, used for per-task
// events (timeout, crash settlement).
func ForTask(l *slog.Logger, taskID uint64) *slog.Logger {
	return l.With("task_id", taskID)
}
