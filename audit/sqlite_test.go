package audit

import (
	"path/filepath"
	"testing"
)

func TestSQLSinkLogAndSummarize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	sink, err := NewSQLSink(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer sink.Close()

	entries := []Entry{
		{Action: "enabled", SensorType: "thermal.temperature", Actor: "app1"},
		{Action: "enabled", SensorType: "power.voltage_current", Actor: "app1"},
		{Action: "disabled", SensorType: "thermal.temperature", Actor: "app1"},
	}
	for _, e := range entries {
		if err := sink.Log(e); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	summary, err := sink.Summarize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Total != 3 {
		t.Fatalf("total = %d, want 3", summary.Total)
	}
	if summary.ByAction["enabled"] != 2 {
		t.Fatalf("got %+v", summary.ByAction)
	}
	if summary.BySensor["thermal.temperature"] != 2 {
		t.Fatalf("got %+v", summary.BySensor)
	}
}

func TestSQLSinkPrunesOldestRowsByID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	sink, err := NewSQLSink(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer sink.Close()

	for i := 0; i < 5; i++ {
		if err := sink.Log(Entry{Action: "tick", SensorType: "x", Actor: "a", TimestampNS: int64(i)}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	dropped, err := sink.Prune(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dropped != 3 {
		t.Fatalf("dropped = %d, want 3", dropped)
	}

	summary, err := sink.Summarize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Total != 2 {
		t.Fatalf("total after prune = %d, want 2", summary.Total)
	}
}

func TestSQLSinkPruneNoopWhenUnderLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	sink, err := NewSQLSink(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer sink.Close()
	sink.Log(Entry{Action: "a", SensorType: "s", Actor: "x"})

	dropped, err := sink.Prune(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dropped != 0 {
		t.Fatalf("dropped = %d, want 0", dropped)
	}
}
