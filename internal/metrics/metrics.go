// Package metrics exposes Prometheus collectors for the SDK: cache
// hit/miss/invalidation counters and remote-call latency. Embedding
// applications can mount Handler() on their own mux to scrape them.
package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	cacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "space",
		Name:      "cache_hits_total",
		Help:      "Cache hits by domain key kind",
	}, []string{"kind"})

	cacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "space",
		Name:      "cache_misses_total",
		Help:      "Cache misses by domain key kind",
	}, []string{"kind"})

	cacheInvalidations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "space",
		Name:      "cache_invalidations_total",
		Help:      "Whole-user cache invalidations",
	})

	remoteCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "space",
		Name:      "remote_call_duration_ms",
		Help:      "Platform API call latency in milliseconds",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"method", "status"})
)

func init() {
	registry.MustRegister(cacheHits, cacheMisses, cacheInvalidations, remoteCallDuration)
}

// keyKind reduces a domain key to its kind label ("contract", "feature",
// ...) to keep label cardinality bounded.
func keyKind(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "other"
}

// CacheHit records a cache hit for the given domain key.
func CacheHit(key string) { cacheHits.WithLabelValues(keyKind(key)).Inc() }

// CacheMiss records a cache miss for the given domain key.
func CacheMiss(key string) { cacheMisses.WithLabelValues(keyKind(key)).Inc() }

// CacheInvalidation records a whole-user invalidation.
func CacheInvalidation() { cacheInvalidations.Inc() }

// ObserveRemoteCall records one platform API call.
func ObserveRemoteCall(method, status string, elapsed time.Duration) {
	remoteCallDuration.WithLabelValues(method, status).Observe(float64(elapsed.Milliseconds()))
}

// Handler returns an http.Handler serving the SDK metrics registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
