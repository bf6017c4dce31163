package logger

import (
	"go.uber.org/zap"

	"exitboot"
)

// Zap wraps a zap.Logger to implement exitboot.Logger.
type Zap struct {
	logger *zap.Logger
}

// NewZap creates an exitboot.Logger from a zap.Logger.
func NewZap(logger *zap.Logger) exitboot.Logger {
	return &Zap{logger: logger}
}

// Critical logs a boot-fatal message with key-value pairs. Zap has no
// level above error, so critical messages log there.
func (z *Zap) Critical(msg string, args ...any) {
	z.logger.Sugar().Errorw(msg, args...)
}

// Error logs an error message with key-value pairs.
func (z *Zap) Error(msg string, args ...any) {
	z.logger.Sugar().Errorw(msg, args...)
}

// Warn logs a warning message with key-value pairs.
func (z *Zap) Warn(msg string, args ...any) {
	z.logger.Sugar().Warnw(msg, args...)
}

// Info logs an info message with key-value pairs.
func (z *Zap) Info(msg string, args ...any) {
	z.logger.Sugar().Infow(msg, args...)
}
