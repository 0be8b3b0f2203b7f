package reqcache_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vearutop/reqcache"
)

// clock is a manually advanced time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.t
}

func (c *clock) Add(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// gatedTransport blocks upstream calls until released.
type gatedTransport struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}

	mu   sync.Mutex
	val  interface{}
	err  error
	ctxs []context.Context
}

func newGatedTransport(val interface{}, err error) *gatedTransport {
	return &gatedTransport{
		started: make(chan struct{}, 100),
		release: make(chan struct{}),
		val:     val,
		err:     err,
	}
}

func (g *gatedTransport) Do(ctx context.Context, req *reqcache.Request) (interface{}, error) {
	g.calls.Add(1)

	g.mu.Lock()
	g.ctxs = append(g.ctxs, ctx)
	g.mu.Unlock()

	g.started <- struct{}{}
	<-g.release

	g.mu.Lock()
	defer g.mu.Unlock()

	return g.val, g.err
}

// countingTransport returns incrementing values without blocking.
type countingTransport struct {
	calls atomic.Int32
	err   error
}

func (c *countingTransport) Do(ctx context.Context, req *reqcache.Request) (interface{}, error) {
	n := c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}

	return int(n), nil
}
