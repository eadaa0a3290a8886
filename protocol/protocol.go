// Package protocol implements Protocol Governance: a pure compatibility
// check between an app manifest's declared protocol version and the
// runtime's supported version range.
package protocol

import "strconv"

// CurrentProtocolVersion is the protocol version this runtime speaks.
const CurrentProtocolVersion = "1"

// SupportedProtocolVersions lists manifest protocol_version values this
// runtime accepts at all.
var SupportedProtocolVersions = map[string]bool{"1": true}

// DeprecatedProtocolVersions lists supported versions that still load but
// warrant a warning, since a future runtime may drop them.
var DeprecatedProtocolVersions = map[string]bool{}

// Decision is the outcome of a compatibility check.
type Decision string

const (
	Accept            Decision = "ACCEPT"
	AcceptWithWarning Decision = "ACCEPT_WITH_WARNING"
	Reject            Decision = "REJECT"
)

// Compatibility is the full result of CheckCompatibility.
type Compatibility struct {
	Decision Decision
	Warning  string
}

// Accepted reports whether the app may load at all.
func (c Compatibility) Accepted() bool {
	return c.Decision != Reject
}

// CheckCompatibility decides whether an app declaring manifestVersion may
// run against this runtime, given its optional min/max runtime protocol
// version bounds.
func CheckCompatibility(manifestVersion string, minRuntimeVersion, maxRuntimeVersion *string) Compatibility {
	if !SupportedProtocolVersions[manifestVersion] {
		return Compatibility{
			Decision: Reject,
			Warning:  "unsupported app protocol_version=" + manifestVersion,
		}
	}

	cur, err := strconv.Atoi(CurrentProtocolVersion)
	if err != nil {
		return Compatibility{Decision: Reject, Warning: "runtime protocol version is not numeric"}
	}

	if minRuntimeVersion != nil {
		min, err := strconv.Atoi(*minRuntimeVersion)
		if err != nil {
			return Compatibility{Decision: Reject, Warning: "app min_runtime_protocol_version is not numeric"}
		}
		if cur < min {
			return Compatibility{
				Decision: Reject,
				Warning: "runtime protocol " + CurrentProtocolVersion +
					" is below app min_runtime_protocol_version " + *minRuntimeVersion,
			}
		}
	}

	if maxRuntimeVersion != nil {
		max, err := strconv.Atoi(*maxRuntimeVersion)
		if err != nil {
			return Compatibility{Decision: Reject, Warning: "app max_runtime_protocol_version is not numeric"}
		}
		if cur > max {
			return Compatibility{
				Decision: Reject,
				Warning: "runtime protocol " + CurrentProtocolVersion +
					" is above app max_runtime_protocol_version " + *maxRuntimeVersion,
			}
		}
	}

	if DeprecatedProtocolVersions[manifestVersion] {
		return Compatibility{
			Decision: AcceptWithWarning,
			Warning:  "app protocol_version=" + manifestVersion + " is deprecated",
		}
	}

	return Compatibility{Decision: Accept}
}
