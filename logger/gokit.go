package logger

import (
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"exitboot"
)

// GoKit wraps a go-kit log.Logger to implement exitboot.Logger.
type GoKit struct {
	logger log.Logger
}

// NewGoKit creates an exitboot.Logger from a go-kit log.Logger.
func NewGoKit(logger log.Logger) exitboot.Logger {
	return &GoKit{logger: logger}
}

// Critical logs a boot-fatal message with key-value pairs. Go-kit levels
// stop at error, so critical messages log there with a critical marker.
func (g *GoKit) Critical(msg string, args ...any) {
	_ = level.Error(g.logger).Log(keyvals(msg, append(args, "critical", true))...)
}

// Error logs an error message with key-value pairs.
func (g *GoKit) Error(msg string, args ...any) {
	_ = level.Error(g.logger).Log(keyvals(msg, args)...)
}

// Warn logs a warning message with key-value pairs.
func (g *GoKit) Warn(msg string, args ...any) {
	_ = level.Warn(g.logger).Log(keyvals(msg, args)...)
}

// Info logs an info message with key-value pairs.
func (g *GoKit) Info(msg string, args ...any) {
	_ = level.Info(g.logger).Log(keyvals(msg, args)...)
}

// keyvals prepends the conventional msg key go-kit loggers expect.
func keyvals(msg string, args []any) []any {
	kv := make([]any, 0, len(args)+2)
	kv = append(kv, "msg", msg)
	return append(kv, args...)
}
