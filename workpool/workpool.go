// Package workpool bounds the blocking tasks spec §5 calls out — process
// table scans, subprocess waits, snapshot I/O — so the event loop never
// runs more than a handful of them concurrently. It adapts the teacher's
// generic object pool (pool.Pool[T]) as a concurrency-limiting semaphore
// of worker tokens rather than reusing its object-cache machinery for
// real objects: token creation is free, so Min and Max are always equal.
package workpool

import (
	"context"
	"fmt"

	"github.com/witlox/dcron/pool"
)

type token struct{}

// effectivelyUnbounded is the maxWait (seconds) passed to the underlying
// object pool, so that Checkout waits up to a day for a free slot before
// giving up on its own.
const effectivelyUnbounded = 24 * 60 * 60

// Pool limits how many blocking tasks run at once.
type Pool struct {
	tokens pool.Pool[token]
}

// New creates a Pool with exactly `workers` concurrent slots. spec §5
// recommends at least 2.
func New(workers int) (*Pool, error) {
	if workers < 1 {
		return nil, fmt.Errorf("workpool: workers must be >= 1, got %d", workers)
	}
	p, err := pool.NewPool[token](
		func() (token, error) { return token{}, nil },
		func(token) error { return nil },
		workers, workers, effectivelyUnbounded,
	)
	if err != nil {
		return nil, fmt.Errorf("workpool: %w", err)
	}
	if err := p.Start(); err != nil {
		return nil, fmt.Errorf("workpool: starting: %w", err)
	}
	return &Pool{tokens: p}, nil
}

// Submit blocks until a worker slot is free, then runs fn and releases
// the slot. ctx is checked once, before waiting: an already-cancelled ctx
// is rejected, but a cancellation during the wait does not end it. The
// caller decides whether to run
// Submit itself in a goroutine for fire-and-forget dispatch.
func (p *Pool) Submit(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tok, err := p.tokens.Checkout()
	if err != nil {
		return fmt.Errorf("workpool: checkout: %w", err)
	}
	defer p.tokens.Checkin(tok)
	return fn()
}

// Close drains the pool, releasing every worker token.
func (p *Pool) Close() error {
	return p.tokens.Close()
}
