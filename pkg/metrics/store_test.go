package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestStoreMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewStoreMetrics(reg)

	metrics.IncMutation("estimates")
	metrics.IncMutation("estimates")
	metrics.IncAlert("delivered")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "store_mutations_total", "collection", "estimates"); err != nil {
		t.Fatalf("fetch mutations: %v", err)
	} else if got != 2 {
		t.Fatalf("expected mutations=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "store_alerts_total", "outcome", "delivered"); err != nil {
		t.Fatalf("fetch alerts: %v", err)
	} else if got != 1 {
		t.Fatalf("expected alerts=1, got %f", got)
	}
}

func TestNilReceiverIsSafe(t *testing.T) {
	var metrics *StoreMetrics
	metrics.IncMutation("users")
	metrics.IncAlert("skipped")

	empty := NewStoreMetrics(nil)
	empty.IncMutation("users")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, labelKey, labelValue string) (float64, error) {
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == labelKey && label.GetValue() == labelValue {
					return metric.GetCounter().GetValue(), nil
				}
			}
		}
	}
	return 0, fmt.Errorf("metric %s{%s=%q} not found", name, labelKey, labelValue)
}
