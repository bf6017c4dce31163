package logger

import (
	"context"
	"log/slog"

	"exitboot"
)

// LevelCritical is the slog level boot-fatal messages log at, one step
// above slog.LevelError with the spacing slog's built-in levels use.
const LevelCritical = slog.LevelError + 4

// Slog wraps an slog.Logger to implement exitboot.Logger.
type Slog struct {
	logger *slog.Logger
}

// NewSlog creates an exitboot.Logger from an slog.Logger.
func NewSlog(logger *slog.Logger) exitboot.Logger {
	return &Slog{logger: logger}
}

// Critical logs a boot-fatal message with key-value pairs at
// LevelCritical.
func (s *Slog) Critical(msg string, args ...any) {
	s.logger.Log(context.Background(), LevelCritical, msg, args...)
}

// Error logs an error message with key-value pairs.
func (s *Slog) Error(msg string, args ...any) {
	s.logger.Error(msg, args...)
}

// Warn logs a warning message with key-value pairs.
func (s *Slog) Warn(msg string, args ...any) {
	s.logger.Warn(msg, args...)
}

// Info logs an info message with key-value pairs.
func (s *Slog) Info(msg string, args ...any) {
	s.logger.Info(msg, args...)
}
