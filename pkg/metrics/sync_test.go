package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestSyncMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewSyncMetrics(reg)

	metrics.ObserveCycle("drained", 250*time.Millisecond)
	metrics.IncSuccess("event", "create")
	metrics.IncFailure("event", "create")
	metrics.IncDeadLettered("lead", "update")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "sync_action_success", "entity_type", "event"); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "sync_action_failure", "entity_type", "event"); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "sync_action_dead_lettered", "entity_type", "lead"); err != nil {
		t.Fatalf("fetch dead-lettered: %v", err)
	} else if got != 1 {
		t.Fatalf("expected dead_lettered=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "sync_cycle_duration_seconds", "outcome", "drained"); err != nil {
		t.Fatalf("fetch cycle duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestSyncMetricsNilRegistererIsNoop(t *testing.T) {
	metrics := NewSyncMetrics(nil)
	metrics.ObserveCycle("drained", time.Second)
	metrics.IncSuccess("event", "create")
	metrics.IncFailure("event", "create")
	metrics.IncDeadLettered("event", "create")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
