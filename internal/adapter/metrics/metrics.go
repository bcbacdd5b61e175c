// Package metrics owns the Prometheus collectors. Every constructor registers
// on the registerer it is given, so tests can use a throwaway registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/pscheid92/rubyemotes/internal/platform/version"
)

const namespace = "rubyemotes"

// Metrics bundles every collector the server exports.
type Metrics struct {
	Registry *prometheus.Registry
	HTTP     *HTTPMetrics
	Cache    *CacheMetrics
	Storage  *StorageMetrics
	Redis    *RedisMetrics
	DB       *DBMetrics
	Admin    *EmoteMetrics
}

// New creates a registry with runtime collectors, a build info gauge and all
// application metrics.
func New(info version.Info) *Metrics {
	reg := NewRegistry()
	registerBuildInfo(reg, info)

	return &Metrics{
		Registry: reg,
		HTTP:     NewHTTPMetrics(reg),
		Cache:    NewCacheMetrics(reg),
		Storage:  NewStorageMetrics(reg),
		Redis:    NewRedisMetrics(reg),
		DB:       NewDBMetrics(reg),
		Admin:    NewEmoteMetrics(reg),
	}
}

// NewRegistry creates a registry with Go runtime and process collectors only.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func registerBuildInfo(reg prometheus.Registerer, info version.Info) {
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Always 1; labels carry the running build.",
		ConstLabels: prometheus.Labels{
			"version":    info.Version,
			"commit":     info.Commit,
			"go_version": info.GoVersion,
		},
	})
	g.Set(1)
	reg.MustRegister(g)
}

// Handler serves reg in the Prometheus text format. Collection errors are
// reported in the response rather than failing the scrape.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		Registry:          reg,
		ErrorHandling:     promhttp.ContinueOnError,
		EnableOpenMetrics: true,
	})
}
