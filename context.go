package reqcache

import (
	"context"
	"regexp"
	"time"
)

type (
	skipReadCtxKey       struct{}
	ttlCtxKey            struct{}
	bypassCtxKey         struct{}
	bypassPatternsCtxKey struct{}
)

// WithTTL returns context with time to live of response overridden.
//
// Override is applied when the request originates upstream call, TTLPolicy is used otherwise.
func WithTTL(ctx context.Context, ttl time.Duration) context.Context {
	return context.WithValue(ctx, ttlCtxKey{}, ttl)
}

// TTL returns time to live override from context.
func TTL(ctx context.Context) (time.Duration, bool) {
	ttl, ok := ctx.Value(ttlCtxKey{}).(time.Duration)

	return ttl, ok
}

// WithSkipRead returns context with cache read ignored.
//
// With such context a valid cached response is not served, fresh upstream call is made
// (or joined if one is already in flight) and its result is stored.
func WithSkipRead(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipReadCtxKey{}, true)
}

// SkipRead returns true if cache read is ignored in context.
func SkipRead(ctx context.Context) bool {
	_, ok := ctx.Value(skipReadCtxKey{}).(bool)

	return ok
}

// WithBypass returns context that sends request directly to transport.
func WithBypass(ctx context.Context) context.Context {
	return context.WithValue(ctx, bypassCtxKey{}, true)
}

// WithBypassPatterns returns context with additional bypass patterns for request URL.
func WithBypassPatterns(ctx context.Context, patterns ...*regexp.Regexp) context.Context {
	existing, _ := ctx.Value(bypassPatternsCtxKey{}).([]*regexp.Regexp)

	merged := make([]*regexp.Regexp, 0, len(existing)+len(patterns))
	merged = append(merged, existing...)
	merged = append(merged, patterns...)

	return context.WithValue(ctx, bypassPatternsCtxKey{}, merged)
}

func bypassed(ctx context.Context, url string) bool {
	if _, ok := ctx.Value(bypassCtxKey{}).(bool); ok {
		return true
	}

	patterns, _ := ctx.Value(bypassPatternsCtxKey{}).([]*regexp.Regexp)

	return matchAny(patterns, url)
}

func matchAny(patterns []*regexp.Regexp, url string) bool {
	for _, p := range patterns {
		if p.MatchString(url) {
			return true
		}
	}

	return false
}
