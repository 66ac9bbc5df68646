package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for conflict checks and
// alternative-time searches.
type SchedulingMetrics struct {
	checksTotal       *prometheus.CounterVec
	conflictsTotal    *prometheus.CounterVec
	skippedSlotsTotal prometheus.Counter
	checkLatency      *prometheus.HistogramVec
	suggestionsCount  prometheus.Histogram
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		checksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voicesched",
			Subsystem: "schedule",
			Name:      "checks_total",
			Help:      "Total conflict checks by outcome",
		}, []string{"outcome"}),
		conflictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voicesched",
			Subsystem: "schedule",
			Name:      "conflicts_total",
			Help:      "Total conflicts found, by type and severity",
		}, []string{"conflict_type", "severity"}),
		skippedSlotsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "voicesched",
			Subsystem: "schedule",
			Name:      "skipped_slots_total",
			Help:      "Malformed schedule slots skipped during snapshot mapping",
		}),
		checkLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "voicesched",
			Subsystem: "schedule",
			Name:      "check_latency_seconds",
			Help:      "Latency of conflict rule evaluation",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		suggestionsCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "voicesched",
			Subsystem: "schedule",
			Name:      "suggestions_returned",
			Help:      "Alternatives returned per search",
			Buckets:   []float64{0, 1, 2, 3, 5, 10},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.checksTotal, m.conflictsTotal, m.skippedSlotsTotal, m.checkLatency, m.suggestionsCount)
	return m
}

func (m *SchedulingMetrics) ObserveCheck(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.checksTotal.WithLabelValues(outcome).Inc()
	m.checkLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *SchedulingMetrics) ObserveConflict(conflictType, severity string) {
	if m == nil {
		return
	}
	m.conflictsTotal.WithLabelValues(conflictType, severity).Inc()
}

func (m *SchedulingMetrics) ObserveSkippedSlot() {
	if m == nil {
		return
	}
	m.skippedSlotsTotal.Inc()
}

func (m *SchedulingMetrics) ObserveAlternatives(count int) {
	if m == nil {
		return
	}
	m.suggestionsCount.Observe(float64(count))
}
