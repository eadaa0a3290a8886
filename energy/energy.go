// Package energy implements the Energy Safety controller: it evaluates
// thermal and power telemetry from the sensor manager into an OK/WARN/
// CRITICAL state, tracks a critical streak, and recommends a throttle
// multiplier and shutdown requests to the runtime.
package energy

import (
	"fmt"
	"time"

	"github.com/0202alcc/luvatrix/internal/share"
	"github.com/0202alcc/luvatrix/logx"
	"github.com/0202alcc/luvatrix/sensor"
)

// State is the evaluated energy safety level.
type State string

const (
	StateOK       State = "OK"
	StateWarn     State = "WARN"
	StateCritical State = "CRITICAL"
)

var stateOrder = map[State]int{StateOK: 0, StateWarn: 1, StateCritical: 2}

func maxState(a, b State) State {
	if stateOrder[a] >= stateOrder[b] {
		return a
	}
	return b
}

// Policy holds the thresholds and multipliers driving evaluation.
type Policy struct {
	ThermalWarnC               float64
	ThermalCriticalC           float64
	PowerWarnW                 float64
	PowerCriticalW             float64
	CriticalStreakForShutdown  int
	ThrottleMultiplierOnWarn   float64
	ThrottleMultiplierOnCritical float64
}

// DefaultPolicy mirrors the reference thresholds.
func DefaultPolicy() Policy {
	return Policy{
		ThermalWarnC:                 85.0,
		ThermalCriticalC:             95.0,
		PowerWarnW:                   45.0,
		PowerCriticalW:               65.0,
		CriticalStreakForShutdown:    3,
		ThrottleMultiplierOnWarn:     1.5,
		ThrottleMultiplierOnCritical: 2.5,
	}
}

// Decision is the result of one evaluation.
type Decision struct {
	State              State
	ThrottleMultiplier float64
	ShouldShutdown     bool
	Reason             string
	ThermalC           *float64
	PowerW             *float64
}

// AuditEntry records an energy safety state transition or shutdown
// request.
type AuditEntry struct {
	TimestampNS    int64
	Action         string
	State          State
	ShouldShutdown bool
	Reason         string
	ThermalC       *float64
	PowerW         *float64
	Actor          string
}

// AuditLogger receives an AuditEntry whenever the state changes or a
// shutdown is requested — not on every evaluation.
type AuditLogger func(AuditEntry)

// Config configures a Controller.
type Config struct {
	Policy          Policy
	AuditLogger     AuditLogger
	EnforceShutdown bool
	Clock           func() int64
}

func defaultConfig() Config {
	return Config{
		Policy:          DefaultPolicy(),
		AuditLogger:     func(AuditEntry) {},
		EnforceShutdown: true,
		Clock:           func() int64 { return time.Now().UnixNano() },
	}
}

// Option configures a Controller at construction time.
type Option = share.Option[Config]

func WithPolicy(p Policy) Option {
	return func(c *Config) { c.Policy = p }
}
func WithAuditLogger(fn AuditLogger) Option {
	return func(c *Config) { c.AuditLogger = fn }
}
func WithEnforceShutdown(enforce bool) Option {
	return func(c *Config) { c.EnforceShutdown = enforce }
}
func WithClock(fn func() int64) Option {
	return func(c *Config) { c.Clock = fn }
}

// Controller evaluates thermal/power telemetry read from a sensor
// Manager into an energy safety Decision.
type Controller struct {
	sensors        *sensor.Manager
	cfg            Config
	criticalStreak int
	lastState      State
}

// New constructs a Controller reading telemetry from sensors.
func New(sensors *sensor.Manager, opts ...Option) *Controller {
	cfg := defaultConfig()
	share.ApplyOptions(&cfg, opts...)
	return &Controller{sensors: sensors, cfg: cfg, lastState: StateOK}
}

// Evaluate reads the thermal.temperature and power.voltage_current
// sensors, derives a Decision, and audits on state transition or
// shutdown request only.
func (c *Controller) Evaluate() Decision {
	thermalSample := c.sensors.ReadSensor("thermal.temperature")
	powerSample := c.sensors.ReadSensor("power.voltage_current")

	thermalC := extractThermalC(thermalSample)
	powerW := extractPowerW(powerSample)

	thermalState := stateForValue(thermalC, c.cfg.Policy.ThermalWarnC, c.cfg.Policy.ThermalCriticalC)
	powerState := stateForValue(powerW, c.cfg.Policy.PowerWarnW, c.cfg.Policy.PowerCriticalW)
	state := maxState(thermalState, powerState)

	shouldShutdown := false
	reason := ""
	if state == StateCritical {
		c.criticalStreak++
		if c.cfg.EnforceShutdown && c.criticalStreak >= c.cfg.Policy.CriticalStreakForShutdown {
			shouldShutdown = true
			reason = "sustained_critical_energy_telemetry"
		}
	} else {
		c.criticalStreak = 0
	}

	throttle := 1.0
	switch state {
	case StateWarn:
		throttle = maxFloat(1.0, c.cfg.Policy.ThrottleMultiplierOnWarn)
	case StateCritical:
		throttle = maxFloat(1.0, c.cfg.Policy.ThrottleMultiplierOnCritical)
	}

	decision := Decision{
		State:              state,
		ThrottleMultiplier: throttle,
		ShouldShutdown:     shouldShutdown,
		Reason:             reason,
		ThermalC:           thermalC,
		PowerW:             powerW,
	}
	c.audit(decision)
	c.lastState = state
	return decision
}

func (c *Controller) audit(d Decision) {
	if d.State == c.lastState && !d.ShouldShutdown {
		return
	}

	switch {
	case d.ShouldShutdown:
		logx.Warn(fmt.Sprintf("energy safety requesting shutdown: state=%s reason=%s", d.State, d.Reason))
	case d.State != StateOK:
		logx.Warn(fmt.Sprintf("energy safety state transition %s -> %s: %s", c.lastState, d.State, d.Reason))
	default:
		logx.Info(fmt.Sprintf("energy safety state transition %s -> %s", c.lastState, d.State))
	}

	c.cfg.AuditLogger(AuditEntry{
		TimestampNS:    c.cfg.Clock(),
		Action:         "energy_safety_state",
		State:          d.State,
		ShouldShutdown: d.ShouldShutdown,
		Reason:         d.Reason,
		ThermalC:       d.ThermalC,
		PowerW:         d.PowerW,
		Actor:          "energy_safety",
	})
}

func stateForValue(value *float64, warn, critical float64) State {
	if value == nil {
		return StateOK
	}
	switch {
	case *value >= critical:
		return StateCritical
	case *value >= warn:
		return StateWarn
	default:
		return StateOK
	}
}

func extractThermalC(sample sensor.Sample) *float64 {
	if sample.Status != sensor.StatusOK || sample.Value == nil {
		return nil
	}
	if v, ok := asFloat(sample.Value); ok {
		return &v
	}
	if m, ok := sample.Value.(map[string]any); ok {
		if v, ok := asFloat(m["celsius"]); ok {
			return &v
		}
		if v, ok := asFloat(m["temperature_c"]); ok {
			return &v
		}
	}
	return nil
}

func extractPowerW(sample sensor.Sample) *float64 {
	if sample.Status != sensor.StatusOK || sample.Value == nil {
		return nil
	}
	if v, ok := asFloat(sample.Value); ok {
		return &v
	}
	if m, ok := sample.Value.(map[string]any); ok {
		if v, ok := asFloat(m["power_w"]); ok {
			return &v
		}
		voltage, vok := asFloat(m["voltage_v"])
		current, cok := asFloat(m["current_a"])
		if vok && cok {
			v := voltage * current
			return &v
		}
	}
	return nil
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

func maxFloat(a, b float64) float64 {
	if a >= b {
		return a
	}
	return b
}
