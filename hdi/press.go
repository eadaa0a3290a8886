package hdi

import (
	"sort"
	"sync"
	"time"
)

// pressPhase is the phase field carried by a synthesized "press" event.
type pressPhase string

const (
	phaseDown      pressPhase = "down"
	phaseRepeat    pressPhase = "repeat"
	phaseHoldStart pressPhase = "hold_start"
	phaseHoldTick  pressPhase = "hold_tick"
	phaseUp        pressPhase = "up"
	phaseHoldEnd   pressPhase = "hold_end"
	phaseSingle    pressPhase = "single"
	phaseDouble    pressPhase = "double"
	phaseCancel    pressPhase = "cancel"
)

// pressKeyState is one key's position in the per-key state machine
// {Up, DownPending, HoldArmed, Holding, Released} from the design notes;
// HoldArmed is the transient instant hold_start fires, folded into
// Holding immediately, so only four states are tracked explicitly.
type pressKeyState int

const (
	stateUp pressKeyState = iota
	stateDownPending
	stateHolding
	stateReleased
)

type keyTimer struct {
	state          pressKeyState
	windowID       string
	downAtNS       int64
	holdStartFired bool
	lastHoldTickNS int64
	releasedAtNS   int64
}

// pressMachine synthesizes a single "press" event stream with a "phase"
// field from raw key_down/key_up transitions, per key.
type pressMachine struct {
	mu sync.Mutex

	doubleThreshold  time.Duration
	holdThreshold    time.Duration
	holdTickInterval time.Duration
	clock            func() int64

	keys map[string]*keyTimer
}

func newPressMachine(double, hold, holdTick time.Duration, clock func() int64) *pressMachine {
	return &pressMachine{
		doubleThreshold:  double,
		holdThreshold:    hold,
		holdTickInterval: holdTick,
		clock:            clock,
		keys:             make(map[string]*keyTimer),
	}
}

func keyFromPayload(payload map[string]any) (string, bool) {
	if payload == nil {
		return "", false
	}
	v, ok := payload["key"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// activeKeysLocked returns the sorted set of keys currently not in the Up
// state. Caller must hold mu.
func (p *pressMachine) activeKeysLocked() []string {
	keys := make([]string, 0, len(p.keys))
	for k, t := range p.keys {
		if t.state != stateUp {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (p *pressMachine) event(windowID string, tsNS int64, phase pressPhase, key string) Event {
	return Event{
		TimestampNS: tsNS,
		WindowID:    windowID,
		Device:      DeviceKeyboard,
		EventType:   "press",
		Status:      StatusOK,
		Payload: map[string]any{
			"phase":       string(phase),
			"key":         key,
			"active_keys": p.activeKeysLocked(),
		},
	}
}

// Observe reacts to one normalized raw keyboard event (key_down or
// key_up). Events with any other EventType, or a non-OK Status, are
// ignored here; inactivity-driven cancellation is handled by Tick.
func (p *pressMachine) observe(raw Event) []Event {
	if raw.Device != DeviceKeyboard || raw.Status != StatusOK {
		return nil
	}
	key, ok := keyFromPayload(raw.Payload)
	if !ok {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	t, exists := p.keys[key]
	if !exists {
		t = &keyTimer{state: stateUp}
		p.keys[key] = t
	}

	switch raw.EventType {
	case "key_down":
		switch t.state {
		case stateUp:
			t.state = stateDownPending
			t.windowID = raw.WindowID
			t.downAtNS = raw.TimestampNS
			t.holdStartFired = false
			return []Event{p.event(raw.WindowID, raw.TimestampNS, phaseDown, key)}
		case stateDownPending, stateHolding:
			return []Event{p.event(raw.WindowID, raw.TimestampNS, phaseRepeat, key)}
		case stateReleased:
			t.state = stateDownPending
			t.windowID = raw.WindowID
			t.downAtNS = raw.TimestampNS
			t.holdStartFired = false
			return []Event{p.event(raw.WindowID, raw.TimestampNS, phaseDouble, key)}
		}
	case "key_up":
		switch t.state {
		case stateDownPending:
			t.state = stateReleased
			t.releasedAtNS = raw.TimestampNS
			return []Event{p.event(raw.WindowID, raw.TimestampNS, phaseUp, key)}
		case stateHolding:
			t.state = stateReleased
			t.releasedAtNS = raw.TimestampNS
			return []Event{
				p.event(raw.WindowID, raw.TimestampNS, phaseUp, key),
				p.event(raw.WindowID, raw.TimestampNS, phaseHoldEnd, key),
			}
		}
	}
	return nil
}

// Tick advances every key's timers, emitting hold_start/hold_tick once
// thresholds are crossed, resolving a Released key to single once the
// double-press window lapses, and cancelling any held key when the
// window is no longer active.
func (p *pressMachine) tick(active bool, tsNS int64) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	keys := make([]string, 0, len(p.keys))
	for k := range p.keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []Event
	for _, key := range keys {
		t := p.keys[key]
		switch t.state {
		case stateDownPending:
			if !active {
				t.state = stateUp
				out = append(out, p.event(t.windowID, tsNS, phaseCancel, key))
				continue
			}
			if tsNS-t.downAtNS >= p.holdThreshold.Nanoseconds() {
				t.state = stateHolding
				t.holdStartFired = true
				t.lastHoldTickNS = tsNS
				out = append(out, p.event(t.windowID, tsNS, phaseHoldStart, key))
			}
		case stateHolding:
			if !active {
				t.state = stateUp
				out = append(out, p.event(t.windowID, tsNS, phaseCancel, key))
				continue
			}
			if tsNS-t.lastHoldTickNS >= p.holdTickInterval.Nanoseconds() {
				t.lastHoldTickNS = tsNS
				out = append(out, p.event(t.windowID, tsNS, phaseHoldTick, key))
			}
		case stateReleased:
			if tsNS-t.releasedAtNS >= p.doubleThreshold.Nanoseconds() {
				t.state = stateUp
				out = append(out, p.event(t.windowID, tsNS, phaseSingle, key))
			}
		}
	}
	return out
}
