package logx

import (
	"context"
)

// Context carries a logger plus an accumulated set of structured fields
// (event_id, revision, sensor_type, capability, app_id — see domain.go)
// through a chain of WithField/WithFields calls. LogOptions, Hook, and
// Logger live in logx.go; this file held a second, stale generation of
// those three (byte-identical redeclarations that would not compile
// alongside logx.go) and has been trimmed to its one non-duplicate type.
type Context struct {
	logger *Logger
	fields map[string]any
	ctx    context.Context
}
