package exitboot

// Options configures hand-off behavior.
type Options struct {
	logger Logger
}

// DefaultOptions returns the default configuration: no logging.
func DefaultOptions() Options {
	return Options{
		logger: DiscardLogger{},
	}
}

// Option configures hand-off options using the functional options pattern.
type Option func(*Options)

// WithLogger routes boot diagnostics to log.
// Logging never drives control flow; a nil-safe sink is the caller's job.
//
//goland:noinspection GoUnusedExportedFunction
func WithLogger(log Logger) Option {
	return func(opts *Options) {
		opts.logger = log
	}
}
