package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPipelineMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPipelineMetrics(reg)

	metrics.IncPublished("program", "published")
	metrics.IncPublishFailure("program")
	metrics.IncApplied("episode", "updated")
	metrics.IncDiscarded("episode")
	metrics.IncDeadLettered("sync", "malformed")
	metrics.ObserveApplyDuration("program", 30*time.Millisecond)
	metrics.SetOutboxRows("failed", 4)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "pipeline_events_published", "entity_type", "program"); err != nil {
		t.Fatalf("fetch published: %v", err)
	} else if got != 1 {
		t.Fatalf("expected published=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "pipeline_events_discarded", "entity_type", "episode"); err != nil {
		t.Fatalf("fetch discarded: %v", err)
	} else if got != 1 {
		t.Fatalf("expected discarded=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "pipeline_dead_letters", "reason", "malformed"); err != nil {
		t.Fatalf("fetch dead letters: %v", err)
	} else if got != 1 {
		t.Fatalf("expected dead_letters=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "pipeline_apply_duration_seconds", "entity_type", "program"); err != nil {
		t.Fatalf("fetch apply duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}

	if got, err := fetchGaugeValue(mfs, "pipeline_outbox_rows", "status", "failed"); err != nil {
		t.Fatalf("fetch outbox rows: %v", err)
	} else if got != 4 {
		t.Fatalf("expected outbox rows=4, got %f", got)
	}
}

func TestPipelineMetricsNilRegistererIsNoOp(t *testing.T) {
	metrics := NewPipelineMetrics(nil)
	metrics.IncPublished("program", "created")
	metrics.SetOutboxRows("pending", 1)
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

func fetchGaugeValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetGauge().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("gauge %q missing label %s=%s", name, label, value)
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
