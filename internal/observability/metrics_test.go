package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RecordToolCall(t *testing.T) {
	m := NewMetrics(func() float64 { return 0 })

	m.RecordToolCall("search", "success", 0.25)

	got := testutil.ToFloat64(m.ToolCallCounter.WithLabelValues("search", "success"))
	if got != 1 {
		t.Errorf("ToolCallCounter = %v, want 1", got)
	}
}

func TestMetrics_RecordModelCacheHitAndMiss(t *testing.T) {
	m := NewMetrics(func() float64 { return 0 })

	m.RecordModelCacheHit()
	m.RecordModelCacheMiss()
	m.RecordModelCacheMiss()

	if got := testutil.ToFloat64(m.ModelCacheCounter.WithLabelValues("hit")); got != 1 {
		t.Errorf("hit count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ModelCacheCounter.WithLabelValues("miss")); got != 2 {
		t.Errorf("miss count = %v, want 2", got)
	}
}

func TestMetrics_BusQueueDepthReflectsCallback(t *testing.T) {
	depth := 4.0
	m := NewMetrics(func() float64 { return depth })

	if got := testutil.ToFloat64(m.BusQueueDepth); got != 4 {
		t.Errorf("BusQueueDepth = %v, want 4", got)
	}
	depth = 9
	if got := testutil.ToFloat64(m.BusQueueDepth); got != 9 {
		t.Errorf("BusQueueDepth after change = %v, want 9", got)
	}
}

func TestMetrics_NilReceiverRecordMethodsAreNoops(t *testing.T) {
	var m *Metrics
	m.RecordToolCall("x", "success", 1)
	m.RecordModelCacheHit()
	m.RecordModelCacheMiss()
}
