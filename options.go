package omfile

import "runtime"

type config struct {
	logger      *Logger
	concurrency int
}

func defaultConfig() config {
	return config{
		logger:      NoopLogger(),
		concurrency: runtime.GOMAXPROCS(0),
	}
}

// Option configures a Reader or Writer.
type Option func(*config)

// WithLogger sets the logger. The default discards all output.
func WithLogger(l *Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithConcurrency bounds the number of chunk fetch/decode workers per
// selection read. Writers ignore it. The default is GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.concurrency = n
		}
	}
}
