package reqcache

// Metrics names, every metric is labeled with "name" of Coalescer.
const (
	MetricHit    = "reqcache_hit"
	MetricMiss   = "reqcache_miss"
	MetricJoin   = "reqcache_join"
	MetricBypass = "reqcache_bypass"
	MetricBuild  = "reqcache_build"
	MetricFailed = "reqcache_failed"
	MetricItems  = "reqcache_items"
)
