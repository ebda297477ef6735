package observability

import (
	"testing"
	"time"
)

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.StatementProcessed("completed")
	m.RetryScheduled()
	m.ObserveExtraction(time.Second)
	m.PositionCreated()
	m.PositionUpdated()
}

func TestMetrics_Registered(t *testing.T) {
	m := NewMetrics()
	m.StatementProcessed("completed")
	m.StatementProcessed("failed")
	m.RetryScheduled()
	m.ObserveExtraction(250 * time.Millisecond)
	m.PositionCreated()
	m.PositionUpdated()

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	want := map[string]bool{
		"statements_processed_total":  false,
		"statement_retries_total":     false,
		"extraction_duration_seconds": false,
		"positions_created_total":     false,
		"positions_updated_total":     false,
	}
	for _, mf := range families {
		if _, ok := want[mf.GetName()]; ok {
			want[mf.GetName()] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("metric %s not registered", name)
		}
	}
}
