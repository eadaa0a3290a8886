package app

import (
	"fmt"
	"sort"

	"github.com/0202alcc/luvatrix/logx"
	"github.com/0202alcc/luvatrix/protocol"
)

// CapabilityDecider decides whether capability should be granted to an
// app. The default embedding grants everything; a host that wants a
// consent prompt or policy file supplies its own.
type CapabilityDecider func(capability string) bool

// CapabilityAuditLogger receives one call per capability decision.
type CapabilityAuditLogger func(action, capability string)

// AllowAllCapabilities is the permissive default CapabilityDecider.
func AllowAllCapabilities(string) bool { return true }

// CapabilityResolver grants or denies a manifest's declared
// capabilities, auditing every decision.
type CapabilityResolver struct {
	decide CapabilityDecider
	audit  CapabilityAuditLogger
}

// NewCapabilityResolver constructs a CapabilityResolver. A nil decide
// defaults to AllowAllCapabilities; a nil audit is a no-op.
func NewCapabilityResolver(decide CapabilityDecider, audit CapabilityAuditLogger) *CapabilityResolver {
	if decide == nil {
		decide = AllowAllCapabilities
	}
	if audit == nil {
		audit = func(string, string) {}
	}
	return &CapabilityResolver{decide: decide, audit: audit}
}

// Resolve grants every required capability the decider approves and
// every optional capability the decider approves, auditing all four
// outcomes (granted/denied x required/optional). If any required
// capability is denied, Resolve returns an error naming all of them and
// grants nothing.
func (r *CapabilityResolver) Resolve(m Manifest) ([]string, error) {
	var granted []string
	var deniedRequired []string

	for _, capability := range m.RequiredCapabilities {
		if r.decide(capability) {
			granted = append(granted, capability)
			r.audit("granted_required", capability)
		} else {
			deniedRequired = append(deniedRequired, capability)
			r.audit("denied_required", capability)
			logx.WithFields(logx.AppFields(m.AppID)).WithField(logx.FieldCapability, capability).
				Warn("required capability denied")
		}
	}
	if len(deniedRequired) > 0 {
		sort.Strings(deniedRequired)
		return nil, fmt.Errorf("app: required capabilities denied: %v", deniedRequired)
	}

	for _, capability := range m.OptionalCapabilities {
		if r.decide(capability) {
			granted = append(granted, capability)
			r.audit("granted_optional", capability)
		} else {
			r.audit("denied_optional", capability)
			logx.WithFields(logx.AppFields(m.AppID)).WithField(logx.FieldCapability, capability).
				Info("optional capability denied")
		}
	}
	return granted, nil
}

// ValidateManifest checks manifest protocol compatibility against the
// runtime's supported protocol range and that its entrypoint (and every
// variant's override) parses as `module:symbol`.
func ValidateManifest(m Manifest) error {
	var minPtr, maxPtr *string
	if m.MinRuntimeProtocolVersion != "" {
		minPtr = &m.MinRuntimeProtocolVersion
	}
	if m.MaxRuntimeProtocolVersion != "" {
		maxPtr = &m.MaxRuntimeProtocolVersion
	}

	compat := protocol.CheckCompatibility(m.ProtocolVersion, minPtr, maxPtr)
	if compat.Warning != "" {
		logx.WithFields(logx.AppFields(m.AppID)).Warn(compat.Warning)
	}
	if !compat.Accepted() {
		return fmt.Errorf("app: %s", compat.Warning)
	}

	if _, _, err := parseEntrypoint(m.Entrypoint); err != nil {
		return err
	}
	for _, v := range m.Variants {
		if v.Entrypoint != "" {
			if _, _, err := parseEntrypoint(v.Entrypoint); err != nil {
				return err
			}
		}
	}
	return nil
}
