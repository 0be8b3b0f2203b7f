package reqcache

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/bool64/ctxd"
	"github.com/bool64/stats"
	"golang.org/x/time/rate"
)

// Transport executes request upstream.
type Transport interface {
	Do(ctx context.Context, req *Request) (interface{}, error)
}

// TransportFunc implements Transport with a function.
type TransportFunc func(ctx context.Context, req *Request) (interface{}, error)

// Do calls function.
func (f TransportFunc) Do(ctx context.Context, req *Request) (interface{}, error) {
	return f(ctx, req)
}

// Config controls Coalescer instance.
type Config struct {
	// Name is added to logs and stats.
	Name string

	// Transport executes upstream calls, required.
	Transport Transport

	// Store is an entry table, sharded in-memory table is created by default.
	Store Store

	// BypassPatterns are regular expressions matched against request URL,
	// any match sends request directly to Transport.
	BypassPatterns []string

	// TTLOverrides maps URL path suffix to time to live of response.
	TTLOverrides map[string]time.Duration

	// GlobalTTL is time to live of response without matching override, default 0 (coalescing only).
	GlobalTTL time.Duration

	// OriginRPS limits rate of upstream calls originated by cache misses, 0 disables limit.
	OriginRPS float64

	// OriginBurst is a burst of origin rate limiter, default 1.
	OriginBurst int

	// ItemsCountReportInterval is entries count metric report interval, default 1m.
	ItemsCountReportInterval time.Duration

	// Logger collects messages with context.
	Logger ctxd.Logger

	// Stats tracks stats.
	Stats stats.Tracker

	// TimeNow returns current time, default time.Now.
	TimeNow func() time.Time
}

// Coalescer deduplicates concurrent identical requests and serves responses from cache.
//
// Please use New to create instance.
type Coalescer struct {
	transport Transport
	store     Store
	ttl       *TTLPolicy
	bypass    []*regexp.Regexp
	limiter   *rate.Limiter

	config Config
	log    ctxd.Logger
	stat   stats.Tracker
	now    func() time.Time

	closed    chan struct{}
	closeOnce sync.Once
}

// New creates a Coalescer instance.
func New(config Config) (*Coalescer, error) {
	if config.Transport == nil {
		return nil, ErrNoTransport
	}

	if config.ItemsCountReportInterval == 0 {
		config.ItemsCountReportInterval = time.Minute
	}

	if config.OriginBurst <= 0 {
		config.OriginBurst = 1
	}

	c := &Coalescer{
		transport: config.Transport,
		store:     config.Store,
		ttl:       NewTTLPolicy(config.GlobalTTL, config.TTLOverrides),
		config:    config,
		log:       config.Logger,
		stat:      config.Stats,
		now:       config.TimeNow,
		closed:    make(chan struct{}),
	}

	for _, p := range config.BypassPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid bypass pattern %q: %w", p, err)
		}

		c.bypass = append(c.bypass, re)
	}

	if c.store == nil {
		c.store = NewShardedStore()
	}

	if c.log == nil {
		c.log = ctxd.NoOpLogger{}
	}

	if c.now == nil {
		c.now = time.Now
	}

	if config.OriginRPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(config.OriginRPS), config.OriginBurst)
	}

	if c.stat == nil {
		c.stat = stats.NoOp{}
	} else {
		go c.reportItemsCount()
	}

	return c, nil
}

// TTLPolicy returns time to live policy of responses.
func (c *Coalescer) TTLPolicy() *TTLPolicy {
	return c.ttl
}

// Do handles request and waits for its result.
func (c *Coalescer) Do(ctx context.Context, req *Request) (interface{}, error) {
	return c.Handle(ctx, req).Wait(ctx)
}

// Handle serves request from cache, joins in-flight upstream call of the same key
// or originates a new one.
//
// Requests with URL matching bypass patterns are sent to transport and never touch the Store.
func (c *Coalescer) Handle(ctx context.Context, req *Request) *Future {
	if matchAny(c.bypass, req.URL) || bypassed(ctx, req.URL) {
		return c.bypassStore(ctx, req)
	}

	key := BuildKey(req)
	e := c.store.Entry(key)
	now := c.now()

	e.mu.Lock()

	if r := e.inflight; r != nil {
		e.mu.Unlock()

		c.log.Debug(ctx, "joining in-flight request",
			"name", c.config.Name,
			"key", key,
			"round", r.id)
		c.stat.Add(ctx, MetricJoin, 1, "name", c.config.Name)

		return &Future{r: r, source: SourceJoin}
	}

	if !SkipRead(ctx) && e.fresh(now) {
		val := e.response
		e.mu.Unlock()

		c.log.Debug(ctx, "cache hit",
			"name", c.config.Name,
			"key", key)
		c.stat.Add(ctx, MetricHit, 1, "name", c.config.Name)

		return &Future{r: settledRound(val, nil), source: SourceCache}
	}

	r := newRound()
	e.inflight = r
	e.mu.Unlock()

	c.log.Debug(ctx, "cache miss",
		"name", c.config.Name,
		"key", key,
		"round", r.id)
	c.stat.Add(ctx, MetricMiss, 1, "name", c.config.Name)

	go c.originate(detachedContext{ctx: ctx}, key, e, req, r)

	return &Future{r: r, source: SourceOrigin}
}

func (c *Coalescer) bypassStore(ctx context.Context, req *Request) *Future {
	r := newRound()

	c.log.Debug(ctx, "bypassing cache",
		"name", c.config.Name,
		"url", req.URL,
		"round", r.id)
	c.stat.Add(ctx, MetricBypass, 1, "name", c.config.Name)

	go func() {
		val, err := c.call(ctx, req, false)
		if err != nil {
			err = &TransportError{URL: req.URL, Round: r.id, Err: err}
		}

		r.val, r.err = val, err
		close(r.done)
	}()

	return &Future{r: r, source: SourceBypass}
}

// originate runs upstream call of a round and publishes its result to every subscriber.
//
// It is the only writer of entry response while round is in flight.
func (c *Coalescer) originate(ctx context.Context, key string, e *Entry, req *Request, r *round) {
	val, err := c.call(ctx, req, true)

	e.mu.Lock()

	if err == nil {
		now := c.now()

		e.response = val
		e.hasResponse = true

		if ttl, ok := TTL(ctx); ok {
			e.expiresAt = now.Add(ttl)
		} else {
			e.expiresAt = c.ttl.ComputeExpiry(req.URL, now)
		}

		r.val = val
	} else {
		r.err = &TransportError{Key: key, URL: req.URL, Round: r.id, Err: err}
	}

	e.inflight = nil
	e.mu.Unlock()

	close(r.done)

	if err != nil {
		c.log.Warn(ctx, "upstream call failed",
			"error", err,
			"name", c.config.Name,
			"key", key,
			"round", r.id)

		return
	}

	c.log.Debug(ctx, "upstream call settled",
		"name", c.config.Name,
		"key", key,
		"round", r.id)
}

// call invokes transport, origin calls are counted as builds and rate limited.
func (c *Coalescer) call(ctx context.Context, req *Request, origin bool) (val interface{}, err error) {
	if origin {
		c.stat.Add(ctx, MetricBuild, 1, "name", c.config.Name)
	}

	defer func() {
		if rec := recover(); rec != nil {
			val = nil
			err = fmt.Errorf("transport panic: %v", rec)
		}

		if err != nil {
			c.stat.Add(ctx, MetricFailed, 1, "name", c.config.Name)
		}
	}()

	if origin && c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, ctxd.WrapError(ctx, err, "origin rate limit", "url", req.URL)
		}
	}

	return c.transport.Do(ctx, req)
}

// ExpireAll marks all cached responses as expired, entries are kept.
func (c *Coalescer) ExpireAll() {
	now := c.now()

	_, _ = c.store.Walk(func(key string, e *Entry) error {
		e.expire(now)

		return nil
	})
}

// Len returns number of entries in Store.
func (c *Coalescer) Len() int {
	return c.store.Len()
}

// Close stops background reporting.
func (c *Coalescer) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
}

func (c *Coalescer) reportItemsCount() {
	ticker := time.NewTicker(c.config.ItemsCountReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case <-ticker.C:
			count := c.Len()

			c.log.Debug(context.Background(), "cache items count",
				"name", c.config.Name,
				"count", count,
			)

			c.stat.Set(context.Background(), MetricItems, float64(count), "name", c.config.Name)
		}
	}
}
