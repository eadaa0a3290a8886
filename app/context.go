package app

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/0202alcc/luvatrix/coords"
	"github.com/0202alcc/luvatrix/hdi"
	"github.com/0202alcc/luvatrix/matrix"
	"github.com/0202alcc/luvatrix/sensor"
)

// SecurityAuditLogger receives a security-relevant denial raised by an
// AppContext call (capability denial, sensor rate limit).
type SecurityAuditLogger func(action, sensorType string)

// Context is the façade a Lifecycle runs against: every collaborator
// access is gated by the capabilities granted at launch.
type Context struct {
	Matrix   *matrix.Matrix
	HDI      *hdi.Thread
	Sensors  *sensor.Manager
	AppID    string
	DefaultFrame coords.Frame

	granted map[string]bool
	auditor SecurityAuditLogger

	sensorReadMinInterval time.Duration
	mu                    sync.Mutex
	lastSensorReadNS      map[string]int64
	clock                 func() int64
}

// NewContext builds an AppContext over the given collaborators and
// capability grant set.
func NewContext(m *matrix.Matrix, h *hdi.Thread, sensors *sensor.Manager, appID string, granted []string, auditor SecurityAuditLogger) *Context {
	grantedSet := make(map[string]bool, len(granted))
	for _, c := range granted {
		grantedSet[c] = true
	}
	if auditor == nil {
		auditor = func(string, string) {}
	}
	return &Context{
		Matrix:                m,
		HDI:                   h,
		Sensors:               sensors,
		AppID:                 appID,
		DefaultFrame:          coords.ScreenTL,
		granted:               grantedSet,
		auditor:               auditor,
		sensorReadMinInterval: 200 * time.Millisecond,
		lastSensorReadNS:      make(map[string]int64),
		clock:                 func() int64 { return time.Now().UnixNano() },
	}
}

// HasCapability reports whether capability was granted.
func (c *Context) HasCapability(capability string) bool {
	return c.granted[capability]
}

func (c *Context) requireCapability(capability string) error {
	if !c.granted[capability] {
		return fmt.Errorf("app: missing capability: %s", capability)
	}
	return nil
}

// SubmitWriteBatch requires the window.write capability.
func (c *Context) SubmitWriteBatch(batch matrix.WriteBatch) (matrix.CommitEvent, int, error) {
	if err := c.requireCapability("window.write"); err != nil {
		return matrix.CommitEvent{}, 0, err
	}
	return c.Matrix.SubmitWriteBatch(batch)
}

// PollHDIEvents polls up to maxEvents HDI events, rewriting any event
// whose device capability (hdi.<device>) was not granted to a DENIED
// status with no payload.
func (c *Context) PollHDIEvents(maxEvents int) ([]hdi.Event, error) {
	if maxEvents <= 0 {
		return nil, fmt.Errorf("app: maxEvents must be > 0")
	}
	events, err := c.HDI.PollEvents(maxEvents)
	if err != nil {
		return nil, err
	}
	for i, event := range events {
		events[i] = c.gateHDIEvent(event)
	}
	return events, nil
}

func (c *Context) gateHDIEvent(event hdi.Event) hdi.Event {
	required := "hdi." + string(event.Device)
	if c.granted[required] {
		return event
	}
	event.Status = hdi.StatusDenied
	event.Payload = nil
	return event
}

// ReadSensor requires a sensor.* / sensor.<type> / sensor.<prefix>
// capability and enforces a per-sensor-type minimum read interval,
// returning a DENIED sample on either failure. Granted readings are
// precision-sanitized unless sensor.high_precision was granted.
func (c *Context) ReadSensor(sensorType string) sensor.Sample {
	nowNS := c.clock()
	if !c.hasSensorCapability(sensorType) {
		c.auditor("sensor_denied_capability", sensorType)
		return sensor.Sample{TimestampNS: nowNS, SensorType: sensorType, Status: sensor.StatusDenied}
	}

	c.mu.Lock()
	last := c.lastSensorReadNS[sensorType]
	if nowNS-last < c.sensorReadMinInterval.Nanoseconds() {
		c.mu.Unlock()
		c.auditor("sensor_denied_rate_limit", sensorType)
		return sensor.Sample{TimestampNS: nowNS, SensorType: sensorType, Status: sensor.StatusDenied}
	}
	c.lastSensorReadNS[sensorType] = nowNS
	c.mu.Unlock()

	sample := c.Sensors.ReadSensor(sensorType)
	return sanitizeSensorSample(sample, c.granted)
}

func (c *Context) hasSensorCapability(sensorType string) bool {
	if c.granted["sensor.*"] {
		return true
	}
	if c.granted[sensorType] || c.granted["sensor."+sensorType] {
		return true
	}
	for i, r := range sensorType {
		if r == '.' {
			return c.granted["sensor."+sensorType[:i]]
		}
	}
	return false
}

// ReadMatrixSnapshot returns a deep-copied RGBA grid at the current
// revision.
func (c *Context) ReadMatrixSnapshot() [][]matrix.RGBA {
	return c.Matrix.ReadSnapshot()
}

// ToRenderCoords converts p from frame into the matrix's ScreenTL render
// space.
func (c *Context) ToRenderCoords(p coords.Point, frame coords.Frame) coords.Point {
	return coords.ToScreenTL(p, frame, c.Matrix.Width(), c.Matrix.Height())
}

// FromRenderCoords converts p out of ScreenTL render space into frame.
func (c *Context) FromRenderCoords(p coords.Point, frame coords.Frame) coords.Point {
	return coords.FromScreenTL(p, frame, c.Matrix.Width(), c.Matrix.Height())
}

func sanitizeSensorSample(sample sensor.Sample, granted map[string]bool) sensor.Sample {
	if sample.Status != sensor.StatusOK || sample.Value == nil {
		return sample
	}
	if granted["sensor.high_precision"] {
		return sample
	}

	switch sample.SensorType {
	case "thermal.temperature":
		if v, ok := asFloat(sample.Value); ok {
			sample.Value = math.Round(v*2.0) / 2.0
		}
	case "power.voltage_current":
		if m, ok := sample.Value.(map[string]any); ok {
			sample.Value = roundMapValues(m, 1)
		}
	case "sensor.motion":
		if m, ok := sample.Value.(map[string]any); ok {
			sample.Value = roundMapValues(m, 0)
		}
	}
	return sample
}

func roundMapValues(m map[string]any, decimals int) map[string]any {
	out := make(map[string]any, len(m))
	factor := math.Pow(10, float64(decimals))
	for k, v := range m {
		if f, ok := asFloat(v); ok {
			out[k] = math.Round(f*factor) / factor
		} else {
			out[k] = v
		}
	}
	return out
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
