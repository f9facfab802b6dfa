// Package observability collects allocation engine metrics on a private
// Prometheus registry.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/eshaffer321/taskalloc/internal/application/allocation"
)

// Metrics holds the engine's Prometheus collectors
type Metrics struct {
	registry *prometheus.Registry

	Edits       *prometheus.CounterVec
	Rejections  *prometheus.CounterVec
	PoolUnits   *prometheus.HistogramVec
	Submissions *prometheus.CounterVec
}

// Compile-time check that Metrics implements allocation.Recorder
var _ allocation.Recorder = (*Metrics)(nil)

// NewMetrics creates the collectors and registers them on a fresh registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Edits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "allocation_edits_total",
				Help: "Accepted session edits by policy and kind",
			},
			[]string{"policy", "kind"},
		),
		Rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "allocation_rejections_total",
				Help: "Edits that were clamped or refused, by policy and reason",
			},
			[]string{"policy", "reason"},
		),
		PoolUnits: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "allocation_pool_units",
				Help:    "Size of each applied distribution pool",
				Buckets: prometheus.ExponentialBuckets(1, 2, 8),
			},
			[]string{"policy"},
		),
		Submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "allocation_submits_total",
				Help: "Committed sessions by policy",
			},
			[]string{"policy"},
		),
	}

	m.registry.MustRegister(m.Edits, m.Rejections, m.PoolUnits, m.Submissions)
	return m
}

// Registry exposes the private registry for gathering
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordEdit(policy, kind string) {
	m.Edits.WithLabelValues(policy, kind).Inc()
}

func (m *Metrics) RecordRejection(policy, reason string) {
	m.Rejections.WithLabelValues(policy, reason).Inc()
}

func (m *Metrics) RecordAllocation(policy string, units int) {
	m.PoolUnits.WithLabelValues(policy).Observe(float64(units))
}

func (m *Metrics) RecordSubmit(policy string) {
	m.Submissions.WithLabelValues(policy).Inc()
}

// WriteSummary prints one line per series. Histograms are reported as their
// sample count and sum.
func (m *Metrics) WriteSummary(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	var lines []string
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			name := mf.GetName() + formatLabels(metric.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				lines = append(lines, fmt.Sprintf("%s %g", name, metric.GetCounter().GetValue()))
			case dto.MetricType_HISTOGRAM:
				h := metric.GetHistogram()
				lines = append(lines, fmt.Sprintf("%s count=%d sum=%g", name, h.GetSampleCount(), h.GetSampleSum()))
			}
		}
	}
	sort.Strings(lines)

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func formatLabels(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = fmt.Sprintf("%s=%q", p.GetName(), p.GetValue())
	}
	return "{" + strings.Join(parts, ",") + "}"
}
