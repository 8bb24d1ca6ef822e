package pipeline

import (
	"io"

	"github.com/VictoriaMetrics/metrics"
)

// Metrics holds the pipeline's counters. They are registered on a private
// metrics.Set so several pipelines (and tests) never share state.
type Metrics struct {
	set *metrics.Set

	functions   *metrics.Counter
	errors      *metrics.Counter
	phis        *metrics.Counter
	blocks      *metrics.Counter
	ssaDuration *metrics.Histogram
}

// NewMetrics registers the pipeline metrics on a fresh set.
func NewMetrics() *Metrics {
	s := metrics.NewSet()
	return &Metrics{
		set:         s,
		functions:   s.NewCounter("hirssa_functions_total"),
		errors:      s.NewCounter("hirssa_function_errors_total"),
		phis:        s.NewCounter("hirssa_phis_total"),
		blocks:      s.NewCounter("hirssa_blocks_total"),
		ssaDuration: s.NewHistogram("hirssa_ssa_duration_seconds"),
	}
}

// WritePrometheus writes all metrics in Prometheus text exposition format.
func (m *Metrics) WritePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
}

// Functions returns the number of functions processed so far.
func (m *Metrics) Functions() uint64 { return m.functions.Get() }

// Errors returns the number of functions that failed.
func (m *Metrics) Errors() uint64 { return m.errors.Get() }

// Phis returns the total number of phis placed.
func (m *Metrics) Phis() uint64 { return m.phis.Get() }

// Blocks returns the total number of blocks built.
func (m *Metrics) Blocks() uint64 { return m.blocks.Get() }
