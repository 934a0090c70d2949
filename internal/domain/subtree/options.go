package subtree

import "github.com/okian/hntally/pkg/logger"

// Option applies a configuration option to the Walker.
type Option func(*Walker)

// WithConcurrency caps in-flight fetches for one Count call.
func WithConcurrency(n int) Option {
	return func(w *Walker) {
		if n > 0 {
			w.concurrency = int64(n)
		}
	}
}

// WithLogger sets the logger used for branch diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(w *Walker) {
		if l != nil {
			w.log = l
		}
	}
}
