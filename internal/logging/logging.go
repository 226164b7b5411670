// Package logging wraps log/slog with a subsystem attribute on every record.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// SubSystem tags the component a log record comes from.
type SubSystem string

// Subsystems.
const (
	Models     SubSystem = "models"
	Toolkit    SubSystem = "toolkit"
	Device     SubSystem = "device"
	Checkpoint SubSystem = "checkpoint"
	Config     SubSystem = "config"
	Optimizer  SubSystem = "optimizer"
)

// Setup installs a default logger writing to w. Format is "json" or "text".
func Setup(w io.Writer, format string, level slog.Level) {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// ParseLevel maps debug/info/warn/error to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// WithNoopLogger runs action with logging suppressed and restores the previous default.
func WithNoopLogger(action func()) {
	current := slog.Default()
	defer slog.SetDefault(current)

	var level slog.LevelVar
	level.Set(slog.Level(100))
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: &level})))
	action()
}

func Warn(msg string, subSystem SubSystem, keyvals ...any) {
	slog.Warn(msg, withSubsystem(subSystem, keyvals)...)
}

func Info(msg string, subSystem SubSystem, keyvals ...any) {
	slog.Info(msg, withSubsystem(subSystem, keyvals)...)
}

func Error(msg string, subSystem SubSystem, keyvals ...any) {
	slog.Error(msg, withSubsystem(subSystem, keyvals)...)
}

func Debug(msg string, subSystem SubSystem, keyvals ...any) {
	slog.Debug(msg, withSubsystem(subSystem, keyvals)...)
}

func withSubsystem(subSystem SubSystem, keyvals []any) []any {
	return append([]any{"subsystem", string(subSystem)}, keyvals...)
}
