package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewJobMetrics(reg)
	job := "feature-sync"

	metrics.ObserveDuration(job, 250*time.Millisecond)
	metrics.IncSuccess(job)
	metrics.IncFailure(job)
	metrics.AddRows(job, 17)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	byName := map[string]*dto.MetricFamily{}
	for _, fam := range families {
		byName[fam.GetName()] = fam
	}

	for _, name := range []string{
		"pipeline_job_duration_seconds",
		"pipeline_job_success",
		"pipeline_job_failure",
		"pipeline_job_rows_total",
	} {
		if _, ok := byName[name]; !ok {
			t.Fatalf("expected family %s, have %v", name, keys(byName))
		}
	}

	rows := byName["pipeline_job_rows_total"].GetMetric()[0].GetCounter().GetValue()
	if rows != 17 {
		t.Fatalf("expected 17 rows recorded, got %v", rows)
	}
}

func TestJobMetricsNilReceiverIsSafe(t *testing.T) {
	var metrics *JobMetrics
	metrics.IncSuccess("x")
	metrics.IncFailure("x")
	metrics.ObserveDuration("x", time.Second)
	metrics.AddRows("x", 1)
}

func TestNormalizeLabel(t *testing.T) {
	if got := normalizeLabel(""); got != "unknown" {
		t.Fatalf("unexpected label %q", got)
	}
}

func keys(m map[string]*dto.MetricFamily) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, fmt.Sprint(k))
	}
	return out
}
