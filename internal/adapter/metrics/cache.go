package metrics

import "github.com/prometheus/client_golang/prometheus"

// CacheMetrics tracks the settings/main read cache.
type CacheMetrics struct {
	Lookups       *prometheus.CounterVec
	Invalidations *prometheus.CounterVec
	Evictions     prometheus.Counter
}

func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	m := &CacheMetrics{
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "config_cache",
			Name:      "lookups_total",
			Help:      "Config cache lookups by layer (memory, redis) and result (hit, miss).",
		}, []string{"layer", "result"}),
		Invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "config_cache",
			Name:      "invalidations_total",
			Help:      "Config cache invalidations by source (local write, remote pub/sub).",
		}, []string{"source"}),
		Evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "config_cache",
			Name:      "evictions_total",
			Help:      "Expired in-memory entries removed by the eviction timer.",
		}),
	}

	reg.MustRegister(m.Lookups, m.Invalidations, m.Evictions)
	return m
}

// Lookup counts one cache lookup. A nil receiver is a no-op.
func (m *CacheMetrics) Lookup(layer string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.Lookups.WithLabelValues(layer, result).Inc()
}

// Invalidated counts one dropped entry. A nil receiver is a no-op.
func (m *CacheMetrics) Invalidated(source string) {
	if m == nil {
		return
	}
	m.Invalidations.WithLabelValues(source).Inc()
}

// Evicted counts n expired entries. A nil receiver is a no-op.
func (m *CacheMetrics) Evicted(n int) {
	if m == nil || n == 0 {
		return
	}
	m.Evictions.Add(float64(n))
}
