package metrics

import "github.com/prometheus/client_golang/prometheus"

// StoreMetrics records mutation and alert-delivery counts for the data
// store.
type StoreMetrics struct {
	mutations *prometheus.CounterVec
	alerts    *prometheus.CounterVec
}

// NewStoreMetrics registers the store metrics on the provided registerer.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	if reg == nil {
		return &StoreMetrics{}
	}
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "store_mutations_total",
		Help: "Collection writes by collection name.",
	}, []string{"collection"})
	alerts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "store_alerts_total",
		Help: "Platform alert attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(mutations, alerts)
	return &StoreMetrics{
		mutations: mutations,
		alerts:    alerts,
	}
}

// IncMutation increments the write counter for the named collection.
func (s *StoreMetrics) IncMutation(collection string) {
	if s == nil || s.mutations == nil {
		return
	}
	s.mutations.WithLabelValues(normalizeLabel(collection)).Inc()
}

// IncAlert increments the alert counter for the given outcome
// (delivered/skipped).
func (s *StoreMetrics) IncAlert(outcome string) {
	if s == nil || s.alerts == nil {
		return
	}
	s.alerts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
