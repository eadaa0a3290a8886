package app

import (
	"testing"
	"time"

	"github.com/0202alcc/luvatrix/hdi"
	"github.com/0202alcc/luvatrix/matrix"
	"github.com/0202alcc/luvatrix/sensor"
)

type noopHDISource struct{}

func (noopHDISource) Poll(windowActive bool, tsNS int64) ([]hdi.Event, error) { return nil, nil }

type constSensorProvider struct {
	value any
	unit  string
}

func (p constSensorProvider) Read() (any, string, error) { return p.value, p.unit, nil }

func newTestContext(t *testing.T, granted []string) *Context {
	t.Helper()
	m, err := matrix.New(4, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	thread, err := hdi.New(noopHDISource{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sensors, err := sensor.New(map[string]sensor.Provider{
		"thermal.temperature": constSensorProvider{value: 72.3, unit: "C"},
	}, sensor.WithPollInterval(time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sensors.SetSensorEnabled("thermal.temperature", true, "test")
	// ReadSensor serves cached samples only; let the poll loop fill the cache.
	sensors.Start()
	time.Sleep(20 * time.Millisecond)
	sensors.Stop()
	return NewContext(m, thread, sensors, "test-app", granted, nil)
}

func TestSubmitWriteBatchRequiresCapability(t *testing.T) {
	ctx := newTestContext(t, nil)
	_, _, err := ctx.SubmitWriteBatch(matrix.WriteBatch{})
	if err == nil {
		t.Fatal("expected error without window.write capability")
	}
}

func TestSubmitWriteBatchSucceedsWithCapability(t *testing.T) {
	ctx := newTestContext(t, []string{"window.write"})
	pixels := [][]matrix.PixelValue{
		{{R: 1, G: 1, B: 1, A: 255}, {R: 1, G: 1, B: 1, A: 255}, {R: 1, G: 1, B: 1, A: 255}, {R: 1, G: 1, B: 1, A: 255}},
		{{R: 1, G: 1, B: 1, A: 255}, {R: 1, G: 1, B: 1, A: 255}, {R: 1, G: 1, B: 1, A: 255}, {R: 1, G: 1, B: 1, A: 255}},
		{{R: 1, G: 1, B: 1, A: 255}, {R: 1, G: 1, B: 1, A: 255}, {R: 1, G: 1, B: 1, A: 255}, {R: 1, G: 1, B: 1, A: 255}},
		{{R: 1, G: 1, B: 1, A: 255}, {R: 1, G: 1, B: 1, A: 255}, {R: 1, G: 1, B: 1, A: 255}, {R: 1, G: 1, B: 1, A: 255}},
	}
	_, _, err := ctx.SubmitWriteBatch(matrix.WriteBatch{Operations: []matrix.WriteOp{matrix.FullRewrite{Pixels: pixels}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReadSensorDeniedWithoutCapability(t *testing.T) {
	ctx := newTestContext(t, nil)
	sample := ctx.ReadSensor("thermal.temperature")
	if sample.Status != sensor.StatusDenied {
		t.Fatalf("status = %v, want DENIED", sample.Status)
	}
}

func TestReadSensorGrantedByWildcardCapability(t *testing.T) {
	ctx := newTestContext(t, []string{"sensor.*"})
	sample := ctx.ReadSensor("thermal.temperature")
	if sample.Status != sensor.StatusOK {
		t.Fatalf("status = %v, want OK", sample.Status)
	}
}

func TestReadSensorGrantedByPrefixCapability(t *testing.T) {
	ctx := newTestContext(t, []string{"sensor.thermal"})
	sample := ctx.ReadSensor("thermal.temperature")
	if sample.Status != sensor.StatusOK {
		t.Fatalf("status = %v, want OK", sample.Status)
	}
}

func TestReadSensorRateLimited(t *testing.T) {
	ctx := newTestContext(t, []string{"sensor.*"})
	first := ctx.ReadSensor("thermal.temperature")
	if first.Status != sensor.StatusOK {
		t.Fatalf("first read status = %v, want OK", first.Status)
	}
	second := ctx.ReadSensor("thermal.temperature")
	if second.Status != sensor.StatusDenied {
		t.Fatalf("second immediate read status = %v, want DENIED (rate limited)", second.Status)
	}
}

func TestReadSensorSanitizesThermalPrecision(t *testing.T) {
	ctx := newTestContext(t, []string{"sensor.*"})
	sample := ctx.ReadSensor("thermal.temperature")
	if sample.Value != 72.5 {
		t.Fatalf("value = %v, want rounded to nearest 0.5 (72.5)", sample.Value)
	}
}

func TestReadSensorHighPrecisionSkipsSanitization(t *testing.T) {
	ctx := newTestContext(t, []string{"sensor.*", "sensor.high_precision"})
	sample := ctx.ReadSensor("thermal.temperature")
	if sample.Value != 72.3 {
		t.Fatalf("value = %v, want unrounded raw value with high_precision granted", sample.Value)
	}
}

func TestPollHDIEventsRewritesUngrantedDeviceToDenied(t *testing.T) {
	ctx := newTestContext(t, nil)
	events, err := ctx.PollHDIEvents(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events from an empty source, got %+v", events)
	}
	gated := ctx.gateHDIEvent(hdi.Event{Device: hdi.DeviceMouse, EventType: "click", Status: hdi.StatusOK, Payload: map[string]any{"x": 1.0}})
	if gated.Status != hdi.StatusDenied || gated.Payload != nil {
		t.Fatalf("expected ungranted mouse event rewritten to DENIED with no payload, got %+v", gated)
	}
}
