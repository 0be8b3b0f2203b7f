package reqcache

import (
	"sort"
	"strings"
	"time"
)

// TTLPolicy resolves time to live of a cached response by URL path suffix.
type TTLPolicy struct {
	// Default is applied to URLs without matching override, zero expires immediately.
	Default time.Duration

	overrides []suffixTTL
}

type suffixTTL struct {
	suffix string
	ttl    time.Duration
}

// NewTTLPolicy creates TTL policy with global default and path suffix overrides.
//
// Longest matching suffix wins, so resolution does not depend on map iteration order.
func NewTTLPolicy(def time.Duration, overrides map[string]time.Duration) *TTLPolicy {
	p := &TTLPolicy{
		Default:   def,
		overrides: make([]suffixTTL, 0, len(overrides)),
	}

	for suffix, ttl := range overrides {
		p.overrides = append(p.overrides, suffixTTL{suffix: suffix, ttl: ttl})
	}

	sort.Slice(p.overrides, func(i, j int) bool {
		li, lj := len(p.overrides[i].suffix), len(p.overrides[j].suffix)
		if li != lj {
			return li > lj
		}

		return p.overrides[i].suffix < p.overrides[j].suffix
	})

	return p
}

// TTL returns time to live for URL.
func (p *TTLPolicy) TTL(url string) time.Duration {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		url = url[:i]
	}

	for _, o := range p.overrides {
		if strings.HasSuffix(url, o.suffix) {
			return o.ttl
		}
	}

	return p.Default
}

// ComputeExpiry returns expiration time of a response for URL received at now.
func (p *TTLPolicy) ComputeExpiry(url string, now time.Time) time.Time {
	return now.Add(p.TTL(url))
}
