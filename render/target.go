// Package render defines the collaborator boundary between the display
// runtime and a presentation backend, plus a reference terminal
// implementation that blits an RGBA matrix as ANSI color blocks.
package render

import "github.com/0202alcc/luvatrix/matrix"

// Frame is one presentable snapshot of the window matrix.
type Frame struct {
	Revision uint64
	Width    int
	Height   int
	RGBA     [][]matrix.RGBA
}

// Target is the render backend collaborator. The runtime calls Start
// before presenting anything and Stop exactly once on shutdown.
type Target interface {
	Start() error
	PresentFrame(frame Frame) error
	Stop() error
}

// EventPumper is an optional Target capability: backends with their own
// OS event loop (window messages, input polling) expose it here so the
// display runtime can pump it once per tick.
type EventPumper interface {
	PumpEvents()
}

// CloseChecker is an optional Target capability: backends that can be
// closed by the user (window close box, Ctrl-C) expose it here so the
// display runtime's main-thread mode can exit promptly.
type CloseChecker interface {
	ShouldClose() bool
}

// PumpEvents pumps target's event loop if it implements EventPumper.
func PumpEvents(target Target) {
	if p, ok := target.(EventPumper); ok {
		p.PumpEvents()
	}
}

// ShouldClose reports whether target has requested to close, for
// backends that implement CloseChecker. Backends without the capability
// never request close on their own.
func ShouldClose(target Target) bool {
	if c, ok := target.(CloseChecker); ok {
		return c.ShouldClose()
	}
	return false
}
