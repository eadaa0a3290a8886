// Package hdi implements the Human-Device Interface thread: a bounded,
// single-producer event queue that normalizes, coalesces,
// coordinate-transforms, and sanitizes pointer/keyboard/trackpad events
// polled from a platform event source.
package hdi

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/0202alcc/luvatrix/coords"
	"github.com/0202alcc/luvatrix/internal/share"
	"github.com/0202alcc/luvatrix/logx"
)

// Device identifies the originating input device class.
type Device string

const (
	DeviceKeyboard Device = "keyboard"
	DeviceMouse    Device = "mouse"
	DeviceTrackpad Device = "trackpad"
)

// Status is the normalization outcome for one event.
type Status string

const (
	StatusOK          Status = "OK"
	StatusNotDetected Status = "NOT_DETECTED"
	StatusUnavailable Status = "UNAVAILABLE"
	StatusDenied      Status = "DENIED"
)

// Event is the single typed shape flowing through the HDI pipeline, both
// before normalization (as produced by an EventSource) and after.
type Event struct {
	EventID     uint64
	TimestampNS int64
	WindowID    string
	Device      Device
	EventType   string
	Status      Status
	// Payload is keyed by event_type: position (x, y), button, deltas,
	// pressure, stage, magnification, rotation, click_count, phase, key,
	// active_keys. nil once Status != OK.
	Payload map[string]any
}

// EventSource polls the platform for raw input events. Raw events need
// not be in normalized payload shape; the Thread normalizes them.
type EventSource interface {
	Poll(windowActive bool, tsNS int64) ([]Event, error)
}

// payloadKeys is the fixed whitelist that survives normalization.
var payloadKeys = []string{
	"button", "delta_x", "delta_y", "pressure", "stage",
	"magnification", "rotation", "click_count", "phase",
}

// Config configures a Thread.
type Config struct {
	MaxQueueSize int
	PollInterval time.Duration

	// WindowActive reports whether the window is key/foreground.
	WindowActive func() bool
	// WindowGeometry returns the window's (left, top, width, height) in
	// screen coordinates.
	WindowGeometry func() (left, top, width, height float64)
	// TargetExtent optionally returns the application's matrix extent;
	// when ok is true and differs from the window size, pointer
	// coordinates are linearly projected onto it.
	TargetExtent func() (width, height int, ok bool)
	// ContentRect optionally reports a letterboxed content inset within
	// the window; events outside it become NOT_DETECTED.
	ContentRect func() (x, y, width, height float64, ok bool)

	DoublePressThreshold time.Duration
	HoldThreshold        time.Duration
	HoldTickInterval     time.Duration

	Clock func() int64
}

func defaultConfig() Config {
	return Config{
		MaxQueueSize:         1024,
		PollInterval:         time.Second / 240,
		WindowActive:         func() bool { return true },
		WindowGeometry:       func() (float64, float64, float64, float64) { return 0, 0, 1, 1 },
		DoublePressThreshold: 300 * time.Millisecond,
		HoldThreshold:        500 * time.Millisecond,
		HoldTickInterval:     150 * time.Millisecond,
		Clock:                func() int64 { return time.Now().UnixNano() },
	}
}

// Option configures a Thread at construction time.
type Option = share.Option[Config]

func WithMaxQueueSize(n int) Option      { return func(c *Config) { c.MaxQueueSize = n } }
func WithPollInterval(d time.Duration) Option { return func(c *Config) { c.PollInterval = d } }
func WithWindowActive(fn func() bool) Option {
	return func(c *Config) { c.WindowActive = fn }
}
func WithWindowGeometry(fn func() (left, top, width, height float64)) Option {
	return func(c *Config) { c.WindowGeometry = fn }
}
func WithTargetExtent(fn func() (width, height int, ok bool)) Option {
	return func(c *Config) { c.TargetExtent = fn }
}
func WithContentRect(fn func() (x, y, width, height float64, ok bool)) Option {
	return func(c *Config) { c.ContentRect = fn }
}
func WithDoublePressThreshold(d time.Duration) Option {
	return func(c *Config) { c.DoublePressThreshold = d }
}
func WithHoldThreshold(d time.Duration) Option { return func(c *Config) { c.HoldThreshold = d } }
func WithHoldTickInterval(d time.Duration) Option {
	return func(c *Config) { c.HoldTickInterval = d }
}
func WithClock(fn func() int64) Option { return func(c *Config) { c.Clock = fn } }

// Thread polls an EventSource on a dedicated goroutine, normalizes each
// event, and exposes a bounded FIFO queue for a single consumer.
type Thread struct {
	cfg    Config
	source EventSource
	press  *pressMachine

	mu          sync.Mutex
	queue       []Event
	nextEventID uint64

	runMu     sync.Mutex
	running   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
	lastError error
}

// New constructs a Thread over source. The thread is not started until
// Start is called.
func New(source EventSource, opts ...Option) (*Thread, error) {
	if source == nil {
		return nil, errors.New("hdi: source must not be nil")
	}
	cfg := defaultConfig()
	share.ApplyOptions(&cfg, opts...)
	if cfg.MaxQueueSize <= 0 {
		return nil, errors.New("hdi: max queue size must be > 0")
	}
	if cfg.PollInterval <= 0 {
		return nil, errors.New("hdi: poll interval must be > 0")
	}
	return &Thread{
		cfg:         cfg,
		source:      source,
		press:       newPressMachine(cfg.DoublePressThreshold, cfg.HoldThreshold, cfg.HoldTickInterval, cfg.Clock),
		nextEventID: 1,
	}, nil
}

// Start launches the polling goroutine. Calling Start on an already
// running Thread is a no-op.
func (t *Thread) Start() {
	t.runMu.Lock()
	defer t.runMu.Unlock()
	if t.running {
		return
	}
	t.running = true
	t.stopCh = make(chan struct{})
	t.doneCh = make(chan struct{})
	go t.run(t.stopCh, t.doneCh)
}

// Stop signals the polling goroutine to exit and waits for it to finish.
func (t *Thread) Stop() {
	t.runMu.Lock()
	if !t.running {
		t.runMu.Unlock()
		return
	}
	t.running = false
	stopCh := t.stopCh
	doneCh := t.doneCh
	t.runMu.Unlock()

	close(stopCh)
	<-doneCh
}

func (t *Thread) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(t.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			active := t.cfg.WindowActive()
			tsNS := t.cfg.Clock()
			events, err := t.source.Poll(active, tsNS)
			if err != nil {
				t.fail(err)
				return
			}
			for _, raw := range events {
				normalized := t.normalize(raw, active)
				if isKeyboardTransition(normalized) {
					for _, synthesized := range t.press.observe(normalized) {
						if err := t.enqueue(synthesized); err != nil {
							t.fail(err)
							return
						}
					}
					continue
				}
				if err := t.enqueue(normalized); err != nil {
					t.fail(err)
					return
				}
			}
			for _, synthesized := range t.press.tick(active, tsNS) {
				if err := t.enqueue(synthesized); err != nil {
					t.fail(err)
					return
				}
			}
		}
	}
}

func (t *Thread) fail(err error) {
	t.mu.Lock()
	t.lastError = err
	t.mu.Unlock()
	t.runMu.Lock()
	t.running = false
	t.runMu.Unlock()
}

// LastError returns the fatal error that stopped the thread, if any.
func (t *Thread) LastError() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastError
}

// PollEvents drains up to maxEvents oldest queued events.
func (t *Thread) PollEvents(maxEvents int) ([]Event, error) {
	if maxEvents <= 0 {
		return nil, errors.New("hdi: max events must be > 0")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	n := maxEvents
	if n > len(t.queue) {
		n = len(t.queue)
	}
	out := append([]Event(nil), t.queue[:n]...)
	t.queue = t.queue[n:]
	return out, nil
}

// PendingCount reports how many events are queued.
func (t *Thread) PendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

func (t *Thread) nextID() uint64 {
	id := t.nextEventID
	t.nextEventID++
	return id
}

// normalize runs the seven-step pipeline from the HDI spec over one raw
// event, in the current screen_tl frame.
func (t *Thread) normalize(raw Event, active bool) Event {
	raw.EventID = t.nextIDLocked()
	if raw.Device == DeviceKeyboard {
		if !active {
			raw.Status = StatusNotDetected
			raw.Payload = nil
			return raw
		}
		raw.Status = StatusOK
		return raw
	}
	return t.normalizePointer(raw, active)
}

func (t *Thread) nextIDLocked() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nextID()
}

func (t *Thread) normalizePointer(event Event, active bool) Event {
	if !active {
		event.Status = StatusNotDetected
		event.Payload = nil
		return event
	}
	requiresPosition := requiresPointerPosition(event.EventType)
	if event.Payload == nil {
		if requiresPosition {
			event.Status = StatusNotDetected
			event.Payload = nil
		}
		return event
	}

	left, top, width, height := t.cfg.WindowGeometry()
	if width <= 0 || height <= 0 {
		event.Status = StatusNotDetected
		event.Payload = nil
		return event
	}

	x, y, havePos := extractPosition(event.Payload, left, top)
	if requiresPosition && !havePos {
		event.Status = StatusNotDetected
		event.Payload = nil
		return event
	}
	if havePos && (x < 0 || y < 0 || x >= width || y >= height) {
		event.Status = StatusNotDetected
		event.Payload = nil
		return event
	}

	targetW, targetH, hasTarget := 0, 0, false
	if t.cfg.TargetExtent != nil {
		targetW, targetH, hasTarget = t.cfg.TargetExtent()
	}
	if havePos && hasTarget && (targetW != int(width) || targetH != int(height)) {
		projected := coords.Project(coords.Point{X: int(x), Y: int(y)}, int(width), int(height), targetW, targetH)
		x, y = float64(projected.X), float64(projected.Y)
	}

	if havePos && t.cfg.ContentRect != nil {
		if cx, cy, cw, ch, ok := t.cfg.ContentRect(); ok {
			if x < cx || y < cy || x >= cx+cw || y >= cy+ch {
				event.Status = StatusNotDetected
				event.Payload = nil
				return event
			}
		}
	}

	safe := map[string]any{}
	if havePos {
		safe["x"] = x
		safe["y"] = y
	}
	for _, key := range payloadKeys {
		if v, ok := event.Payload[key]; ok {
			safe[key] = v
		}
	}
	if len(safe) == 0 && requiresPosition {
		event.Status = StatusNotDetected
		event.Payload = nil
		return event
	}
	event.Payload = safe
	event.Status = StatusOK
	return event
}

func extractPosition(payload map[string]any, left, top float64) (x, y float64, ok bool) {
	if sx, sxOK := toFloat(payload["screen_x"]); sxOK {
		if sy, syOK := toFloat(payload["screen_y"]); syOK {
			return sx - left, sy - top, true
		}
	}
	if px, pxOK := toFloat(payload["x"]); pxOK {
		if py, pyOK := toFloat(payload["y"]); pyOK {
			return px, py, true
		}
	}
	return 0, 0, false
}

func toFloat(v any) (float64, bool) {
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

func requiresPointerPosition(eventType string) bool {
	switch eventType {
	case "pointer_move", "mouse_move", "trackpad_move", "click", "tap", "scroll":
		return true
	default:
		return false
	}
}

func isMoveEvent(event Event) bool {
	switch event.EventType {
	case "pointer_move", "mouse_move", "trackpad_move":
		return true
	default:
		return false
	}
}

func isKeyboardTransition(event Event) bool {
	return event.Device == DeviceKeyboard && (event.EventType == "key_down" || event.EventType == "key_up")
}

// enqueue applies move coalescing and back-pressure eviction, then
// appends event to the queue.
func (t *Thread) enqueue(event Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if isMoveEvent(event) {
		if idx, found := t.findLastMoveIndex(event); found {
			t.queue[idx] = event
			return nil
		}
	}

	if len(t.queue) < t.cfg.MaxQueueSize {
		t.queue = append(t.queue, event)
		return nil
	}

	if isKeyboardTransition(event) {
		if t.dropOneNonKeyboard() {
			t.queue = append(t.queue, event)
			return nil
		}
		return fmt.Errorf("hdi: queue saturated with keyboard transitions; refusing to drop keyboard events")
	}

	if isMoveEvent(event) {
		return nil
	}

	if idx, found := t.findOldestNonKeyboard(); found {
		t.queue = append(t.queue[:idx], t.queue[idx+1:]...)
		t.queue = append(t.queue, event)
		logx.Warn(fmt.Sprintf("hdi: queue saturated, dropped oldest non-keyboard event to admit %s", event.Device))
		return nil
	}
	t.queue = t.queue[1:]
	t.queue = append(t.queue, event)
	logx.Warn(fmt.Sprintf("hdi: queue saturated, dropped oldest event to admit %s", event.Device))
	return nil
}

func (t *Thread) findLastMoveIndex(incoming Event) (int, bool) {
	for i := len(t.queue) - 1; i >= 0; i-- {
		e := t.queue[i]
		if isMoveEvent(e) && e.Device == incoming.Device && e.WindowID == incoming.WindowID {
			return i, true
		}
	}
	return 0, false
}

func (t *Thread) dropOneNonKeyboard() bool {
	for i, e := range t.queue {
		if !isKeyboardTransition(e) {
			t.queue = append(t.queue[:i], t.queue[i+1:]...)
			return true
		}
	}
	return false
}

func (t *Thread) findOldestNonKeyboard() (int, bool) {
	for i, e := range t.queue {
		if !isKeyboardTransition(e) {
			return i, true
		}
	}
	return 0, false
}
