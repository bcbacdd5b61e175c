package metrics

import "github.com/prometheus/client_golang/prometheus"

// RedisMetrics tracks Redis commands and the circuit breaker guarding them.
type RedisMetrics struct {
	OpsTotal            *prometheus.CounterVec
	OpDuration          *prometheus.HistogramVec
	ConnectionErrors    prometheus.Counter
	CircuitState        prometheus.Gauge
	CircuitStateChanges *prometheus.CounterVec
}

// NewRedisMetrics creates and registers Redis metrics on the given registry.
func NewRedisMetrics(reg prometheus.Registerer) *RedisMetrics {
	m := &RedisMetrics{
		OpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "operations_total",
			Help:      "Total number of Redis commands, by command and status.",
		}, []string{"operation", "status"}),
		OpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "operation_duration_seconds",
			Help:      "Duration of Redis commands in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}, []string{"operation"}),
		ConnectionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "connection_errors_total",
			Help:      "Total number of failed Redis dials.",
		}),
		CircuitState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}),
		CircuitStateChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "circuit_breaker_state_changes_total",
			Help:      "Total number of circuit breaker transitions, by new state.",
		}, []string{"state"}),
	}

	reg.MustRegister(m.OpsTotal, m.OpDuration, m.ConnectionErrors, m.CircuitState, m.CircuitStateChanges)
	return m
}
