package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCollector_RecordOperation(t *testing.T) {
	collector := NewCollector()
	ctx := context.Background()

	collector.RecordOperation(ctx, "add_memory", "success", 1000)
	collector.RecordOperation(ctx, "add_memory", "success", 1500)
	collector.RecordOperation(ctx, "add_memory", "error", 500)
	collector.RecordOperation(ctx, "query_memory", "success", 200)

	if got := testutil.CollectAndCount(collector.operationsTotal); got != 3 {
		t.Errorf("expected 3 metric series (add_memory/success, add_memory/error, query_memory/success), got %d", got)
	}

	addSuccess := testutil.ToFloat64(collector.operationsTotal.WithLabelValues("add_memory", "success"))
	if addSuccess != 2 {
		t.Errorf("expected 2 add_memory/success operations, got %f", addSuccess)
	}

	addError := testutil.ToFloat64(collector.operationsTotal.WithLabelValues("add_memory", "error"))
	if addError != 1 {
		t.Errorf("expected 1 add_memory/error operation, got %f", addError)
	}
}

func TestMetricsCollector_RecordStage(t *testing.T) {
	collector := NewCollector()
	ctx := context.Background()

	collector.RecordStage(ctx, "query_memory", "resolve", 100)
	collector.RecordStage(ctx, "query_memory", "expand", 2500)
	collector.RecordStage(ctx, "query_memory", "expand", 3000)

	if got := testutil.CollectAndCount(collector.operationDuration); got != 2 {
		t.Errorf("expected 2 histogram series, got %d", got)
	}

	expandHistogram := collector.operationDuration.WithLabelValues("query_memory", "expand")
	if expandHistogram == nil {
		t.Error("expected expand histogram to exist")
	}
}

func TestMetricsCollector_RecordError(t *testing.T) {
	collector := NewCollector()
	ctx := context.Background()

	collector.RecordError(ctx, "add_memory", "capacity")
	collector.RecordError(ctx, "add_memory", "capacity")
	collector.RecordError(ctx, "add_memory", "not_found")
	collector.RecordError(ctx, "query_memory", "invalid_argument")

	capacityErrors := testutil.ToFloat64(collector.errorsTotal.WithLabelValues("add_memory", "capacity"))
	if capacityErrors != 2 {
		t.Errorf("expected 2 capacity errors, got %f", capacityErrors)
	}

	notFoundErrors := testutil.ToFloat64(collector.errorsTotal.WithLabelValues("add_memory", "not_found"))
	if notFoundErrors != 1 {
		t.Errorf("expected 1 not_found error, got %f", notFoundErrors)
	}
}

func TestMetricsCollector_SetStorageCount(t *testing.T) {
	collector := NewCollector()
	ctx := context.Background()

	collector.SetStorageCount(ctx, "nodes", 42)
	collector.SetStorageCount(ctx, "edges", 150)
	collector.SetStorageCount(ctx, "temporal_edges", 300)

	nodes := testutil.ToFloat64(collector.storageCount.WithLabelValues("nodes"))
	if nodes != 42 {
		t.Errorf("expected 42 nodes, got %f", nodes)
	}

	collector.SetStorageCount(ctx, "nodes", 50)
	nodes = testutil.ToFloat64(collector.storageCount.WithLabelValues("nodes"))
	if nodes != 50 {
		t.Errorf("expected 50 nodes after update, got %f", nodes)
	}
}

func TestMetricsCollector_Registry(t *testing.T) {
	collector := NewCollector()
	ctx := context.Background()

	collector.RecordOperation(ctx, "test", "success", 100)
	collector.RecordStage(ctx, "test", "stage1", 50)
	collector.RecordError(ctx, "test", "error1")
	collector.SetStorageCount(ctx, "nodes", 10)

	registry := collector.Registry()
	if registry == nil {
		t.Fatal("expected non-nil registry")
	}

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	expectedFamilies := 4
	if len(metricFamilies) != expectedFamilies {
		t.Errorf("expected %d metric families, got %d", expectedFamilies, len(metricFamilies))
	}
}

// TestMetricsCollector_NoPayloadLeakage verifies metrics contain no sensitive data.
func TestMetricsCollector_NoPayloadLeakage(t *testing.T) {
	collector := NewCollector()
	ctx := context.Background()

	collector.RecordOperation(ctx, "add_memory", "success", 1000)
	collector.RecordStage(ctx, "add_memory", "resolve", 500)
	collector.RecordError(ctx, "add_memory", "invalid_argument")

	metricFamilies, err := collector.Registry().Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	forbiddenTerms := []string{"text", "context", "embedding", "api_key", "API", "Bearer"}
	for _, mf := range metricFamilies {
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				value := label.GetValue()
				for _, term := range forbiddenTerms {
					if value == term {
						t.Errorf("found forbidden term %q in metric label", term)
					}
				}
			}
		}
	}
}
