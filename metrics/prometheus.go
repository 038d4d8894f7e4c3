package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics implements Metrics backed by a dedicated registry.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	committedHeight prometheus.Gauge
	txsDelivered    prometheus.Counter
	txsFailed       *prometheus.CounterVec
	txsChecked      *prometheus.CounterVec
	queries         *prometheus.CounterVec
	commitLatency   prometheus.Histogram
	blockTxs        prometheus.Histogram
}

var _ Metrics = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates the metric set under the given namespace.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	m := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
		committedHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "committed_height",
			Help:      "Latest committed revision.",
		}),
		txsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "txs_delivered_total",
			Help:      "Successfully delivered transactions.",
		}),
		txsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "txs_failed_total",
			Help:      "Failed transactions by reason.",
		}, []string{"reason"}),
		txsChecked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "txs_checked_total",
			Help:      "Mempool gate checks by result.",
		}, []string{"result"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "State queries by path kind.",
		}, []string{"kind"}),
		commitLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "commit_latency_seconds",
			Help:      "Duration of state commits.",
			Buckets:   prometheus.DefBuckets,
		}),
		blockTxs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "block_txs",
			Help:      "Transactions per block.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 500},
		}),
	}
	m.registry.MustRegister(
		m.committedHeight,
		m.txsDelivered,
		m.txsFailed,
		m.txsChecked,
		m.queries,
		m.commitLatency,
		m.blockTxs,
	)
	return m
}

func (m *PrometheusMetrics) SetCommittedHeight(height uint64) {
	m.committedHeight.Set(float64(height))
}

func (m *PrometheusMetrics) IncTxsDelivered() {
	m.txsDelivered.Inc()
}

func (m *PrometheusMetrics) IncTxsFailed(reason string) {
	m.txsFailed.WithLabelValues(reason).Inc()
}

func (m *PrometheusMetrics) IncTxsChecked(result string) {
	m.txsChecked.WithLabelValues(result).Inc()
}

func (m *PrometheusMetrics) IncQueries(kind string) {
	m.queries.WithLabelValues(kind).Inc()
}

func (m *PrometheusMetrics) ObserveCommitLatency(latency time.Duration) {
	m.commitLatency.Observe(latency.Seconds())
}

func (m *PrometheusMetrics) ObserveBlockTxs(count int) {
	m.blockTxs.Observe(float64(count))
}

// Handler returns the HTTP handler serving the registry.
func (m *PrometheusMetrics) Handler() any {
	return m.HTTPHandler()
}

// HTTPHandler returns a typed HTTP handler for serving metrics.
func (m *PrometheusMetrics) HTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
