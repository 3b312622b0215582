package worker

import (
	"github.com/okian/farecast/pkg/logger"
)

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithSize sets the number of workers.
func WithSize(size int) Option {
	return func(p *Pool) {
		if size > 0 {
			p.size = size
		}
	}
}

// WithMinChunk sets the smallest chunk handed to a worker.
func WithMinChunk(rows int) Option {
	return func(p *Pool) {
		if rows > 0 {
			p.minChunk = rows
		}
	}
}

// WithLogger sets a custom logger for the pool.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}
