// Package metrics defines the application's metrics surface with
// Prometheus and no-op implementations.
package metrics

import "time"

// Metrics is the instrumentation interface the application reports into.
type Metrics interface {
	// SetCommittedHeight records the latest committed revision.
	SetCommittedHeight(height uint64)

	// IncTxsDelivered counts successfully delivered transactions.
	IncTxsDelivered()

	// IncTxsFailed counts failed transactions by reason.
	IncTxsFailed(reason string)

	// IncTxsChecked counts mempool gate checks by result.
	IncTxsChecked(result string)

	// IncQueries counts state queries by path kind.
	IncQueries(kind string)

	// ObserveCommitLatency records the duration of a commit.
	ObserveCommitLatency(latency time.Duration)

	// ObserveBlockTxs records the number of transactions in a block.
	ObserveBlockTxs(count int)

	// Handler returns the HTTP handler serving the metrics, or nil.
	Handler() any
}

// NopMetrics discards everything. Use when metrics collection is disabled.
type NopMetrics struct{}

// NewNopMetrics creates a new NopMetrics instance.
func NewNopMetrics() *NopMetrics { return &NopMetrics{} }

func (m *NopMetrics) SetCommittedHeight(uint64)              {}
func (m *NopMetrics) IncTxsDelivered()                       {}
func (m *NopMetrics) IncTxsFailed(string)                    {}
func (m *NopMetrics) IncTxsChecked(string)                   {}
func (m *NopMetrics) IncQueries(string)                      {}
func (m *NopMetrics) ObserveCommitLatency(time.Duration)     {}
func (m *NopMetrics) ObserveBlockTxs(int)                    {}
func (m *NopMetrics) Handler() any                           { return nil }

var _ Metrics = (*NopMetrics)(nil)
