package metrics

import "github.com/prometheus/client_golang/prometheus"

// EmoteMetrics counts admin operations by outcome and admin requests turned
// away before reaching a handler.
type EmoteMetrics struct {
	Operations *prometheus.CounterVec
	Rejections *prometheus.CounterVec
}

// NewEmoteMetrics creates and registers emote operation metrics on the given registry.
func NewEmoteMetrics(reg prometheus.Registerer) *EmoteMetrics {
	m := &EmoteMetrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admin",
			Name:      "operations_total",
			Help:      "Total number of admin operations, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admin",
			Name:      "rejections_total",
			Help:      "Admin requests rejected before the handler, by reason (forbidden, rate_limited).",
		}, []string{"reason"}),
	}

	reg.MustRegister(m.Operations, m.Rejections)
	return m
}

// Record counts one operation. A nil receiver is a no-op.
func (m *EmoteMetrics) Record(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
}

// Rejected counts one turned-away admin request. A nil receiver is a no-op.
func (m *EmoteMetrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(reason).Inc()
}
