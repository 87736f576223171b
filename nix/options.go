package nix

import (
	"time"

	"go.uber.org/zap"

	"github.com/jacentio/nixcore/store"
)

// Option configures a File.
type Option func(*File)

// WithBackend sets the backend the file flushes to.
func WithBackend(b store.Backend) Option {
	return func(f *File) {
		if b != nil {
			f.backend = b
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(f *File) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(clock func() time.Time) Option {
	return func(f *File) {
		if clock != nil {
			f.clock = clock
		}
	}
}
