// Package reqcache coalesces concurrent identical outbound requests and caches their results.
// Focused on race-free operation in front of an upstream transport.
//
// Features:
//
//  - Canonical, order-insensitive request keys (query and nested body object keys).
//  - Single upstream call per key at any time, result fanned out to every joined caller.
//  - Failures are delivered to every caller of a round and never poison a cached value.
//  - Per-URL-suffix TTL overrides with a global default.
//  - Bypass patterns to exclude URLs from caching and coalescing.
//  - Injected entry store, sharded by xxhash or backed by xsync.Map.
//  - Allows logging, stats collection and origin rate limiting.
//  - Propagates context to allow better control of transport and application components.
//  - Allows mass expiration with flood protection.
package reqcache
