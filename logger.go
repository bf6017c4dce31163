package exitboot

// Logger interface matches the implementation of slog, plus a Critical
// level for conditions that end the boot hand-off.
// See pkg logger for adapter implementations for common logger libraries.
type Logger interface {
	Critical(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
}

// DiscardLogger is the default logger that compiles to a no-op
type DiscardLogger struct{}

func (d DiscardLogger) Critical(string, ...any) {}

func (d DiscardLogger) Error(string, ...any) {}

func (d DiscardLogger) Warn(string, ...any) {}

func (d DiscardLogger) Info(string, ...any) {}
