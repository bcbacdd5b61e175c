package metrics

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// DBMetrics tracks document store queries. It implements pgx.QueryTracer.
type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
	QueryErrors   *prometheus.CounterVec
}

var _ pgx.QueryTracer = (*DBMetrics)(nil)

// NewDBMetrics creates and registers database metrics on the given registry.
func NewDBMetrics(reg prometheus.Registerer) *DBMetrics {
	m := &DBMetrics{
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Duration of database queries in seconds, by statement kind.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"statement"}),
		QueryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Total number of failed database queries, by statement kind.",
		}, []string{"statement"}),
	}

	reg.MustRegister(m.QueryDuration, m.QueryErrors)
	return m
}

type queryStartKey struct{}

type queryStart struct {
	at        time.Time
	statement string
}

func (m *DBMetrics) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{at: time.Now(), statement: statementKind(data.SQL)})
}

func (m *DBMetrics) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	qs, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	m.QueryDuration.WithLabelValues(qs.statement).Observe(time.Since(qs.at).Seconds())
	if data.Err != nil && data.Err != pgx.ErrNoRows {
		m.QueryErrors.WithLabelValues(qs.statement).Inc()
	}
}

// statementKind keeps the label set small: the leading SQL keyword, lowercased.
func statementKind(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	kind := strings.ToLower(fields[0])
	switch kind {
	case "select", "insert", "update", "delete", "with":
		return kind
	default:
		return "other"
	}
}
