package hdi

import "testing"

func newTestPressMachine(clock func() int64) *pressMachine {
	return newPressMachine(300000000, 150000000, 100000000, clock)
}

func TestPressDownThenUpEmitsDownAndUp(t *testing.T) {
	var now int64
	clock := func() int64 { return now }
	pm := newTestPressMachine(clock)

	down := Event{Device: DeviceKeyboard, EventType: "key_down", Status: StatusOK, Payload: map[string]any{"key": "a"}}
	events := pm.observe(down)
	if len(events) != 1 || events[0].Payload["phase"] != string(phaseDown) {
		t.Fatalf("expected single down phase, got %+v", events)
	}

	up := Event{Device: DeviceKeyboard, EventType: "key_up", Status: StatusOK, Payload: map[string]any{"key": "a"}}
	events = pm.observe(up)
	if len(events) != 1 || events[0].Payload["phase"] != string(phaseUp) {
		t.Fatalf("expected single up phase, got %+v", events)
	}
}

func TestPressHoldTransitionsOverTime(t *testing.T) {
	var now int64
	clock := func() int64 { return now }
	pm := newTestPressMachine(clock)

	pm.observe(Event{Device: DeviceKeyboard, EventType: "key_down", Status: StatusOK, Payload: map[string]any{"key": "a"}})

	now = 310000000 // past holdThreshold (150ms)
	events := pm.tick(true, now)
	if len(events) != 1 || events[0].Payload["phase"] != string(phaseHoldStart) {
		t.Fatalf("expected hold_start after threshold, got %+v", events)
	}

	now += 160000000 // past holdTickInterval (100ms)
	events = pm.tick(true, now)
	if len(events) != 1 || events[0].Payload["phase"] != string(phaseHoldTick) {
		t.Fatalf("expected hold_tick, got %+v", events)
	}
}

func TestPressDoubleTapEmitsDouble(t *testing.T) {
	var now int64
	clock := func() int64 { return now }
	pm := newTestPressMachine(clock)

	key := map[string]any{"key": "a"}
	pm.observe(Event{Device: DeviceKeyboard, EventType: "key_down", Status: StatusOK, Payload: key})
	pm.observe(Event{Device: DeviceKeyboard, EventType: "key_up", Status: StatusOK, Payload: key})

	now = 50000000 // within doubleThreshold (300ms)
	events := pm.observe(Event{Device: DeviceKeyboard, EventType: "key_down", Status: StatusOK, Payload: key})
	if len(events) != 1 || events[0].Payload["phase"] != string(phaseDouble) {
		t.Fatalf("expected double phase, got %+v", events)
	}
}

func TestPressCancelsOnWindowInactive(t *testing.T) {
	var now int64
	clock := func() int64 { return now }
	pm := newTestPressMachine(clock)

	pm.observe(Event{Device: DeviceKeyboard, EventType: "key_down", Status: StatusOK, Payload: map[string]any{"key": "a"}})
	events := pm.tick(false, now)
	if len(events) != 1 || events[0].Payload["phase"] != string(phaseCancel) {
		t.Fatalf("expected cancel on inactive window, got %+v", events)
	}
}
