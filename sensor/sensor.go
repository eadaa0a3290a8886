// Package sensor implements the Sensor Manager: consent-gated polling of
// named sensor types, with a status taxonomy distinguishing a disabled
// sensor from one whose read was denied or one with no backing provider.
package sensor

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/0202alcc/luvatrix/internal/share"
	"github.com/0202alcc/luvatrix/logx"
)

// Status is the outcome of a sensor read.
type Status string

const (
	StatusOK          Status = "OK"
	StatusDisabled    Status = "DISABLED"
	StatusUnavailable Status = "UNAVAILABLE"
	StatusDenied      Status = "DENIED"
)

// Sample is one sensor reading, cached between poll cycles.
type Sample struct {
	SampleID    uint64
	TimestampNS int64
	SensorType  string
	Status      Status
	Value       any
	Unit        string
}

// ErrSensorReadDenied is returned by a Provider when the host refuses the
// read outright (permission prompts declined, policy blocks it).
var ErrSensorReadDenied = errors.New("sensor: read denied")

// ErrSensorReadUnavailable is returned by a Provider when the underlying
// hardware or OS facility cannot produce a value right now.
var ErrSensorReadUnavailable = errors.New("sensor: read unavailable")

// Provider reads one sensor type from some backing facility.
type Provider interface {
	Read() (value any, unit string, err error)
}

// FallbackProvider tries providers in order and returns the first
// success. If every provider fails it returns ErrSensorReadUnavailable,
// unless any provider failed with ErrSensorReadDenied, in which case that
// takes precedence — a denial is a sharper signal than "no hardware".
type FallbackProvider struct {
	providers []Provider
}

// NewFallbackProvider builds a FallbackProvider over providers, tried in
// the given order.
func NewFallbackProvider(providers ...Provider) (*FallbackProvider, error) {
	if len(providers) == 0 {
		return nil, errors.New("sensor: fallback provider needs at least one provider")
	}
	return &FallbackProvider{providers: providers}, nil
}

func (f *FallbackProvider) Read() (any, string, error) {
	denied := false
	for _, p := range f.providers {
		value, unit, err := p.Read()
		if err == nil {
			return value, unit, nil
		}
		if errors.Is(err, ErrSensorReadDenied) {
			denied = true
		}
	}
	if denied {
		return nil, "", ErrSensorReadDenied
	}
	return nil, "", ErrSensorReadUnavailable
}

// AuditEntry records one sensor state transition.
type AuditEntry struct {
	TimestampNS int64
	Action      string
	SensorType  string
	Actor       string
}

// AuditLogger receives an AuditEntry for every enable/disable transition,
// granted or denied.
type AuditLogger func(AuditEntry)

// ConsentProvider is consulted before enabling a sensor type that is not
// in DefaultEnabledSensors. Returning false denies the enable.
type ConsentProvider func(sensorType string) bool

// SafetyDisableGuard is consulted before disabling a sensor type that is
// in DefaultEnabledSensors. Returning false denies the disable, keeping
// the default-enabled sensor readable.
type SafetyDisableGuard func(sensorType string) bool

// DefaultEnabledSensors lists the sensor types enabled at construction
// without requiring consent, and protected from being disabled without
// SafetyDisableGuard approval.
var DefaultEnabledSensors = map[string]bool{
	"thermal.temperature":  true,
	"power.voltage_current": true,
}

// Config configures a Manager.
type Config struct {
	PollInterval       time.Duration
	ConsentProvider    ConsentProvider
	SafetyDisableGuard SafetyDisableGuard
	AuditLogger        AuditLogger
	Clock              func() int64
}

func defaultConfig() Config {
	return Config{
		PollInterval:       500 * time.Millisecond,
		ConsentProvider:    func(string) bool { return false },
		SafetyDisableGuard: func(string) bool { return false },
		AuditLogger:        func(AuditEntry) {},
		Clock:              func() int64 { return time.Now().UnixNano() },
	}
}

// Option configures a Manager at construction time.
type Option = share.Option[Config]

func WithPollInterval(d time.Duration) Option {
	return func(c *Config) { c.PollInterval = d }
}
func WithConsentProvider(fn ConsentProvider) Option {
	return func(c *Config) { c.ConsentProvider = fn }
}
func WithSafetyDisableGuard(fn SafetyDisableGuard) Option {
	return func(c *Config) { c.SafetyDisableGuard = fn }
}
func WithAuditLogger(fn AuditLogger) Option {
	return func(c *Config) { c.AuditLogger = fn }
}
func WithClock(fn func() int64) Option {
	return func(c *Config) { c.Clock = fn }
}

// Manager polls a fixed set of named sensor providers on a background
// thread, gating enable/disable transitions by consent and by a safety
// guard, and serving cached reads with a status taxonomy.
type Manager struct {
	cfg Config

	mu       sync.Mutex
	provider map[string]Provider
	enabled  map[string]bool
	denied   map[string]bool
	sample   map[string]Sample
	nextID   uint64

	runMu  sync.Mutex
	running bool
	stopCh chan struct{}
	doneCh chan struct{}
}

// New constructs a Manager over providers (sensor type -> Provider).
// Sensor types in DefaultEnabledSensors start enabled; all others start
// disabled until SetSensorEnabled grants consent.
func New(providers map[string]Provider, opts ...Option) (*Manager, error) {
	if len(providers) == 0 {
		return nil, errors.New("sensor: manager needs at least one provider")
	}
	cfg := defaultConfig()
	share.ApplyOptions(&cfg, opts...)
	if cfg.PollInterval <= 0 {
		return nil, errors.New("sensor: PollInterval must be > 0")
	}

	m := &Manager{
		cfg:      cfg,
		provider: make(map[string]Provider, len(providers)),
		enabled:  make(map[string]bool, len(providers)),
		denied:   make(map[string]bool),
		sample:   make(map[string]Sample, len(providers)),
	}
	for sensorType, p := range providers {
		m.provider[sensorType] = p
		m.enabled[sensorType] = DefaultEnabledSensors[sensorType]
	}
	return m, nil
}

// Start launches the background polling loop. Calling Start while
// already running is a no-op.
func (m *Manager) Start() {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	go m.run(m.stopCh, m.doneCh)
}

// Stop signals the background loop to exit and waits for it.
func (m *Manager) Stop() {
	m.runMu.Lock()
	running := m.running
	stopCh, doneCh := m.stopCh, m.doneCh
	m.running = false
	m.runMu.Unlock()

	if running {
		close(stopCh)
		<-doneCh
	}
}

func (m *Manager) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			m.pollAll()
		}
	}
}

func (m *Manager) pollAll() {
	m.mu.Lock()
	types := make([]string, 0, len(m.provider))
	for sensorType := range m.provider {
		types = append(types, sensorType)
	}
	m.mu.Unlock()

	for _, sensorType := range types {
		m.pollOne(sensorType)
	}
}

func (m *Manager) pollOne(sensorType string) {
	m.mu.Lock()
	enabled := m.enabled[sensorType]
	provider := m.provider[sensorType]
	m.mu.Unlock()
	if !enabled || provider == nil {
		return
	}

	value, unit, err := provider.Read()
	tsNS := m.cfg.Clock()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	sample := Sample{SampleID: m.nextID, TimestampNS: tsNS, SensorType: sensorType}
	switch {
	case err == nil:
		delete(m.denied, sensorType)
		sample.Status = StatusOK
		sample.Value = value
		sample.Unit = unit
	case errors.Is(err, ErrSensorReadDenied):
		m.denied[sensorType] = true
		sample.Status = StatusDenied
		logx.WithFields(logx.SensorFields(sensorType)).Warn("sensor read denied")
	default:
		sample.Status = StatusUnavailable
		logx.WithFields(logx.SensorFields(sensorType)).WarnIf(err, "sensor read unavailable")
	}
	m.sample[sensorType] = sample
}

// EnabledSensors returns the sorted list of currently enabled sensor
// types.
func (m *Manager) EnabledSensors() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var types []string
	for sensorType, enabled := range m.enabled {
		if enabled {
			types = append(types, sensorType)
		}
	}
	sort.Strings(types)
	return types
}

// SetSensorEnabled attempts to enable or disable sensorType on behalf of
// actor, subject to consent (for enabling a non-default sensor) and the
// safety guard (for disabling a default-enabled sensor). Returns whether
// the requested transition took effect, and always records an audit
// entry describing the attempt and its outcome.
func (m *Manager) SetSensorEnabled(sensorType string, enable bool, actor string) bool {
	m.mu.Lock()
	_, known := m.provider[sensorType]
	m.mu.Unlock()
	if !known {
		m.audit("unknown_sensor", sensorType, actor)
		return false
	}

	isDefault := DefaultEnabledSensors[sensorType]

	if enable {
		if !isDefault && !m.cfg.ConsentProvider(sensorType) {
			m.audit("enable_denied", sensorType, actor)
			logx.WithFields(logx.SensorFields(sensorType)).Warn("sensor enable denied by consent provider (actor=%s)", actor)
			return false
		}
		m.mu.Lock()
		m.enabled[sensorType] = true
		m.mu.Unlock()
		m.audit("enabled", sensorType, actor)
		return true
	}

	if isDefault && !m.cfg.SafetyDisableGuard(sensorType) {
		m.audit("disable_denied", sensorType, actor)
		logx.WithFields(logx.SensorFields(sensorType)).Warn("sensor disable denied by safety guard (actor=%s)", actor)
		return false
	}
	m.mu.Lock()
	m.enabled[sensorType] = false
	m.mu.Unlock()
	m.audit("disabled", sensorType, actor)
	return true
}

func (m *Manager) audit(action, sensorType, actor string) {
	m.cfg.AuditLogger(AuditEntry{
		TimestampNS: m.cfg.Clock(),
		Action:      action,
		SensorType:  sensorType,
		Actor:       actor,
	})
}

// ReadSensor resolves the current Status and cached Sample for
// sensorType. Resolution order: unknown type -> UNAVAILABLE; a prior
// denied read -> DENIED; disabled -> DISABLED; no cached sample yet ->
// UNAVAILABLE; otherwise the cached sample.
func (m *Manager) ReadSensor(sensorType string) Sample {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, known := m.provider[sensorType]
	if !known {
		return Sample{SensorType: sensorType, Status: StatusUnavailable, TimestampNS: m.cfg.Clock()}
	}
	if m.denied[sensorType] {
		return Sample{SensorType: sensorType, Status: StatusDenied, TimestampNS: m.cfg.Clock()}
	}
	if !m.enabled[sensorType] {
		return Sample{SensorType: sensorType, Status: StatusDisabled, TimestampNS: m.cfg.Clock()}
	}
	sample, ok := m.sample[sensorType]
	if !ok {
		return Sample{SensorType: sensorType, Status: StatusUnavailable, TimestampNS: m.cfg.Clock()}
	}
	return sample
}

// String renders a Sample for logging.
func (s Sample) String() string {
	return fmt.Sprintf("%s=%v%s [%s]", s.SensorType, s.Value, s.Unit, s.Status)
}
