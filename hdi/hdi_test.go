package hdi

import (
	"testing"
	"time"
)

type fakeSource struct {
	batches [][]Event
	i       int
	err     error
}

func (f *fakeSource) Poll(windowActive bool, tsNS int64) ([]Event, error) {
	if f.i >= len(f.batches) {
		return nil, f.err
	}
	batch := f.batches[f.i]
	f.i++
	return batch, nil
}

func TestNormalizePointerProjectsAndClips(t *testing.T) {
	thread, err := New(&fakeSource{},
		WithWindowActive(func() bool { return true }),
		WithWindowGeometry(func() (float64, float64, float64, float64) { return 100, 100, 200, 200 }),
		WithTargetExtent(func() (int, int, bool) { return 20, 20, true }),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw := Event{
		WindowID:  "w1",
		Device:    DeviceMouse,
		EventType: "mouse_move",
		Status:    StatusOK,
		Payload:   map[string]any{"screen_x": 200.0, "screen_y": 200.0, "button": "left"},
	}
	normalized := thread.normalize(raw, true)
	if normalized.Status != StatusOK {
		t.Fatalf("status = %v, want OK", normalized.Status)
	}
	if normalized.Payload["button"] != "left" {
		t.Fatalf("payload lost whitelisted field: %+v", normalized.Payload)
	}
	if _, ok := normalized.Payload["x"]; !ok {
		t.Fatalf("payload missing projected x: %+v", normalized.Payload)
	}
}

func TestNormalizeInactiveWindowMarksNotDetected(t *testing.T) {
	thread, _ := New(&fakeSource{}, WithWindowActive(func() bool { return false }))
	raw := Event{Device: DeviceKeyboard, EventType: "key_down", Status: StatusOK, Payload: map[string]any{"key": "a"}}
	normalized := thread.normalize(raw, false)
	if normalized.Status != StatusNotDetected {
		t.Fatalf("status = %v, want NOT_DETECTED", normalized.Status)
	}
}

func TestMoveEventsCoalesce(t *testing.T) {
	thread, _ := New(&fakeSource{}, WithWindowActive(func() bool { return true }))
	first := Event{Device: DeviceMouse, EventType: "mouse_move", Status: StatusOK, Payload: map[string]any{"x": 1, "y": 1}}
	second := Event{Device: DeviceMouse, EventType: "mouse_move", Status: StatusOK, Payload: map[string]any{"x": 2, "y": 2}}

	if err := thread.enqueue(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := thread.enqueue(second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if thread.PendingCount() != 1 {
		t.Fatalf("pending = %d, want 1 (moves should coalesce)", thread.PendingCount())
	}
}

func TestKeyboardTransitionsAreNeverDropped(t *testing.T) {
	thread, err := New(&fakeSource{}, WithWindowActive(func() bool { return true }), WithMaxQueueSize(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	move := Event{Device: DeviceMouse, EventType: "click", Status: StatusOK, Payload: map[string]any{"x": 1, "y": 1}}
	if err := thread.enqueue(move); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	keyDown := Event{Device: DeviceKeyboard, EventType: "key_down", Status: StatusOK, Payload: map[string]any{"key": "a"}}
	if err := thread.enqueue(keyDown); err != nil {
		t.Fatalf("unexpected error enqueuing keyboard transition: %v", err)
	}
	events, err := thread.PollEvents(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 || events[0].EventType != "key_down" {
		t.Fatalf("expected the keyboard event to survive eviction, got %+v", events)
	}
}

func TestThreadStartStopDrainsSource(t *testing.T) {
	source := &fakeSource{batches: [][]Event{
		{{Device: DeviceKeyboard, EventType: "key_down", Status: StatusOK, Payload: map[string]any{"key": "a"}}},
	}}
	thread, err := New(source, WithWindowActive(func() bool { return true }), WithPollInterval(5*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	thread.Start()
	defer thread.Stop()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if thread.PendingCount() > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("thread never enqueued the polled event")
}
