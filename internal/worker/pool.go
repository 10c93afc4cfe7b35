// Package worker runs indexed jobs in fixed-size concurrent chunks with a
// pacing delay between chunks.
package worker

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Defaults used when a Pool is created with non-positive values.
const (
	DefaultSize  = 5
	DefaultDelay = 100 * time.Millisecond
)

// Pool processes jobs chunk by chunk. Every job of a chunk runs
// concurrently; the next chunk starts only after the whole chunk has
// finished and the pacing delay has elapsed.
type Pool struct {
	size   int
	delay  time.Duration
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// Option configures a Pool.
type Option func(*Pool)

// WithSleep replaces the pacing sleep, for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Pool) { p.sleep = sleep }
}

// NewPool returns a Pool with the given chunk size and inter-chunk delay.
// A size below 1 falls back to DefaultSize; a negative delay disables pacing.
func NewPool(size int, delay time.Duration, logger *slog.Logger, opts ...Option) *Pool {
	if size < 1 {
		size = DefaultSize
	}
	if delay < 0 {
		delay = 0
	}
	p := &Pool{
		size:   size,
		delay:  delay,
		logger: logger,
		sleep:  sleepCtx,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Size returns the chunk size.
func (p *Pool) Size() int { return p.size }

// Process calls fn(ctx, i) for every i in [0, n) and returns after all
// calls have finished. fn is responsible for storing its own result by
// index, which keeps output order independent of completion order.
//
// The first error returned by fn cancels the context of the remaining jobs
// in its chunk; Process waits for the chunk, starts no further chunk and
// returns that error. If ctx is cancelled, Process stops before the next
// chunk and returns ctx.Err().
func (p *Pool) Process(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	for start := 0; start < n; start += p.size {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+p.size, n)

		g, chunkCtx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error { return fn(chunkCtx, i) })
		}
		if err := g.Wait(); err != nil {
			p.logger.Debug("chunk failed", "from", start, "to", end, "total", n, "error", err)
			return err
		}

		p.logger.Debug("chunk complete", "from", start, "to", end, "total", n)

		if end < n && p.delay > 0 {
			if err := p.sleep(ctx, p.delay); err != nil {
				return err
			}
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
