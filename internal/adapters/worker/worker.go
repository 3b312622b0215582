// Package worker featurizes large record batches on a pool of goroutines.
// Records are cut into contiguous chunks and the per-chunk frames are
// concatenated in input order, so the result equals a serial run.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/farecast/internal/domain/features"
	"github.com/okian/farecast/internal/domain/trip"
	"github.com/okian/farecast/pkg/logger"
	"github.com/okian/farecast/pkg/metrics"
)

// Default pool configuration constants.
const (
	defaultMinChunk = 2048
)

// Featurizer turns records into a feature frame. *features.Pipeline
// satisfies it.
type Featurizer interface {
	Apply(records []trip.Record) (*features.Frame, error)
}

type job struct {
	index  int
	lo, hi int
}

type result struct {
	index int
	frame *features.Frame
	err   error
}

// Pool runs a Featurizer over record chunks in parallel.
type Pool struct {
	featurizer Featurizer
	size       int
	minChunk   int
	logger     logger.Logger
}

// NewPool creates a pool. A non-positive size defaults to runtime.NumCPU().
func NewPool(featurizer Featurizer, opts ...Option) *Pool {
	p := &Pool{
		featurizer: featurizer,
		size:       runtime.NumCPU(),
		minChunk:   defaultMinChunk,
		logger:     logger.Get().Named("featurize-pool"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

// Featurize applies the featurizer to records. The first chunk error
// cancels the remaining work and is returned.
func (p *Pool) Featurize(ctx context.Context, records []trip.Record) (*features.Frame, error) {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	jobs := p.plan(len(records))
	if len(jobs) <= 1 {
		f, err := p.featurizer.Apply(records)
		if err != nil {
			metrics.RecordWorkerError()
			return nil, err
		}
		return f, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobCh := make(chan job)
	resCh := make(chan result, len(jobs))
	workers := p.size
	if workers > len(jobs) {
		workers = len(jobs)
	}
	metrics.UpdateWorkerActiveCount(workers)
	defer metrics.UpdateWorkerActiveCount(0)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			p.run(ctx, name, records, jobCh, resCh)
		}("worker-" + strconv.Itoa(w))
	}

	go func() {
		defer close(jobCh)
		for _, j := range jobs {
			select {
			case jobCh <- j:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resCh)
	}()

	frames := make([]*features.Frame, len(jobs))
	var firstErr error
	for r := range resCh {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
				cancel()
			}
			continue
		}
		frames[r.index] = r.frame
	}
	if firstErr != nil {
		metrics.RecordWorkerError()
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("featurize cancelled: %w", err)
	}
	for i, f := range frames {
		if f == nil {
			return nil, fmt.Errorf("chunk %d produced no frame: %w", i, features.ErrShape)
		}
	}
	p.logger.Debug(ctx, "featurized batch",
		logger.Int("records", len(records)),
		logger.Int("chunks", len(jobs)),
		logger.Int("workers", workers),
		logger.Duration("elapsed", time.Since(start)),
	)
	return features.Concat(frames...)
}

func (p *Pool) run(ctx context.Context, name string, records []trip.Record, jobs <-chan job, out chan<- result) {
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			f, err := p.featurizer.Apply(records[j.lo:j.hi])
			if err != nil {
				p.logger.Warn(ctx, "chunk failed",
					logger.String("worker", name),
					logger.Int("from", j.lo),
					logger.Error(err),
				)
				err = fmt.Errorf("records %d-%d: %w", j.lo, j.hi-1, err)
			}
			out <- result{index: j.index, frame: f, err: err}
		}
	}
}

// plan cuts n records into contiguous chunks of at least minChunk rows.
func (p *Pool) plan(n int) []job {
	if n == 0 {
		return nil
	}
	size := (n + p.size - 1) / p.size
	if size < p.minChunk {
		size = p.minChunk
	}
	var jobs []job
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		jobs = append(jobs, job{index: len(jobs), lo: lo, hi: hi})
	}
	return jobs
}
