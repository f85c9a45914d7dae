package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedengine_cache_hits_total",
		Help: "Cache hits per component.",
	}, []string{"component"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedengine_cache_misses_total",
		Help: "Cache misses (including backend failures treated as misses) per component.",
	}, []string{"component"})

	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedengine_cache_errors_total",
		Help: "Cache backend errors swallowed as misses/no-ops.",
	}, []string{"component"})

	FanoutWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedengine_fanout_timeline_writes_total",
		Help: "Timeline entries written by the fan-out dispatcher.",
	})

	TrendingRecomputes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedengine_trending_recomputes_total",
		Help: "Completed trending recompute cycles.",
	})

	FeedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedengine_feed_requests_total",
		Help: "Feed read requests by source path (cache, rebuild, guest).",
	}, []string{"path"})

	WriterDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedengine_background_writes_dropped_total",
		Help: "Fire-and-forget cache writes dropped due to a full queue.",
	})
)
